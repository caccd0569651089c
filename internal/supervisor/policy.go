package supervisor

import (
	"time"

	"github.com/matheus3301/wppdesk/internal/transport"
)

// Action is what the supervisor does after a session closes.
type Action int

const (
	// Reconnect keeps credentials and tries again after Delay.
	Reconnect Action = iota
	// Reset wipes credentials, returns to Disconnected and re-pairs after Delay.
	Reset
	// Halt stops in Disconnected until an operator connects or resets.
	Halt
)

func (a Action) String() string {
	switch a {
	case Reconnect:
		return "reconnect"
	case Reset:
		return "reset"
	case Halt:
		return "halt"
	}
	return "unknown"
}

// Policy is the reaction to one close reason.
type Policy struct {
	Action Action
	Delay  time.Duration
}

var policies = map[transport.Reason]Policy{
	transport.ReasonLoggedOut:        {Reset, 3 * time.Second},
	transport.ReasonBadSession:       {Reset, 3 * time.Second},
	transport.ReasonConnectionClosed: {Reconnect, 3 * time.Second},
	transport.ReasonRestartRequired:  {Reconnect, 2 * time.Second},
	transport.ReasonConnectionLost:   {Reconnect, 5 * time.Second},
	transport.ReasonTimedOut:         {Reconnect, 5 * time.Second},
	transport.ReasonUnknown:          {Reconnect, 5 * time.Second},
	transport.ReasonReplaced:         {Action: Halt},
	transport.ReasonBanned:           {Action: Halt},
	transport.ReasonClientOutdated:   {Action: Halt},
}

// PolicyFor classifies a close reason. Unrecognised reasons are treated as unknown.
func PolicyFor(r transport.Reason) Policy {
	if p, ok := policies[r]; ok {
		return p
	}
	return policies[transport.ReasonUnknown]
}

// backoffDelay is base doubled per prior attempt, capped at ceiling.
func backoffDelay(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/wppdesk/internal/bus"
)

// State is the connectivity status of the messaging session.
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
	Reconnecting State = "reconnecting"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Connected, Reconnecting, Disconnected},
	Connected:    {Reconnecting, Disconnected},
	Reconnecting: {Connecting, Disconnected},
}

// Snapshot is a consistent read of the session state.
type Snapshot struct {
	Status       State
	PairingToken string
	Attempts     int
	Since        time.Time
}

// Reader is the read-only view handed to everything except the supervisor.
type Reader interface {
	Current() State
	Snapshot() Snapshot
}

// Machine holds the process-wide session state. Only the connection
// supervisor mutates it; other components receive it as a Reader.
type Machine struct {
	mu       sync.RWMutex
	current  State
	token    string
	attempts int
	since    time.Time
	bus      *bus.Bus
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Disconnected,
		since:   time.Now(),
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Snapshot returns status, pairing token and attempt counter together.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Status: m.current, PairingToken: m.token, Attempts: m.attempts, Since: m.since}
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
// Entering Connected consumes the pairing token and resets the attempt counter.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	from := m.current
	m.current = to
	m.since = time.Now()
	tokenConsumed := false
	if to == Connected {
		m.attempts = 0
		tokenConsumed = m.token != ""
		m.token = ""
	}
	attempts := m.attempts
	m.mu.Unlock()

	m.publishStatus(from, to, attempts)
	if tokenConsumed {
		m.publishPairing("")
	}
	return nil
}

// SetPairingToken records a freshly issued pairing challenge.
func (m *Machine) SetPairingToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	m.publishPairing(token)
}

// ClearPairingToken invalidates any outstanding pairing challenge.
func (m *Machine) ClearPairingToken() {
	m.mu.Lock()
	had := m.token != ""
	m.token = ""
	m.mu.Unlock()
	if had {
		m.publishPairing("")
	}
}

// IncrementAttempts bumps the reconnect attempt counter and returns the new value.
func (m *Machine) IncrementAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	return m.attempts
}

// ResetAttempts zeroes the reconnect attempt counter.
func (m *Machine) ResetAttempts() {
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()
}

// Reset returns to the initial values: Disconnected, no token, zero attempts.
func (m *Machine) Reset() {
	m.mu.Lock()
	from := m.current
	hadToken := m.token != ""
	m.current = Disconnected
	m.token = ""
	m.attempts = 0
	if from != Disconnected {
		m.since = time.Now()
	}
	m.mu.Unlock()

	if from != Disconnected {
		m.publishStatus(from, Disconnected, 0)
	}
	if hadToken {
		m.publishPairing("")
	}
}

func (m *Machine) publishStatus(from, to State, attempts int) {
	if m.bus == nil {
		return
	}
	m.bus.Emit(bus.KindSessionStatus, bus.SessionStatus{
		From:     string(from),
		To:       string(to),
		Attempts: attempts,
	})
}

func (m *Machine) publishPairing(token string) {
	if m.bus == nil {
		return
	}
	m.bus.Emit(bus.KindSessionPairing, bus.SessionPairing{Token: token})
}

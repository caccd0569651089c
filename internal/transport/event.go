package transport

// Reason classifies why a session closed.
type Reason string

const (
	ReasonBadSession       Reason = "bad-session"
	ReasonConnectionClosed Reason = "connection-closed"
	ReasonConnectionLost   Reason = "connection-lost"
	ReasonReplaced         Reason = "connection-replaced"
	ReasonLoggedOut        Reason = "logged-out"
	ReasonRestartRequired  Reason = "restart-required"
	ReasonTimedOut         Reason = "timed-out"
	ReasonBanned           Reason = "banned"
	ReasonClientOutdated   Reason = "client-outdated"
	ReasonUnknown          Reason = "unknown"
)

// Event is one item of the transport event stream.
type Event interface {
	isEvent()
}

// Opened reports a fully established session.
type Opened struct{}

// Closed reports the session ended for Reason.
type Closed struct {
	Reason Reason
	Detail string
}

// PairingCode carries a pairing challenge for the operator to scan.
type PairingCode struct {
	Token string
}

// CredentialsRotated reports that pairing succeeded and credentials were stored.
type CredentialsRotated struct{}

// MessageReceived carries an inbound message.
type MessageReceived struct {
	Message Inbound
}

// StatusChanged carries a delivery receipt. Code uses 1 pending, 2 sent,
// 3 delivered, 4 read.
type StatusChanged struct {
	Peer string
	IDs  []string
	Code int
}

func (Opened) isEvent()             {}
func (Closed) isEvent()             {}
func (PairingCode) isEvent()        {}
func (CredentialsRotated) isEvent() {}
func (MessageReceived) isEvent()    {}
func (StatusChanged) isEvent()      {}

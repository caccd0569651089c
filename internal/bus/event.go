package bus

import "time"

// Event kinds fanned out to operator consoles.
const (
	KindMessageNew          = "message.new"
	KindMessageStatus       = "message.status"
	KindConversationRead    = "conversation.read"
	KindConversationUpdated = "conversation.updated"
	KindUnreadUpdate        = "unread.update"
	KindSessionStatus       = "session.status"
	KindSessionPairing      = "session.pairing"
)

// Event represents a domain event published on the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}

// MessageNew is emitted once per persisted message.
type MessageNew struct {
	PeerID      string `json:"peer_id"`
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Text        string `json:"text,omitempty"`
	Ref         string `json:"ref,omitempty"`
	FromMe      bool   `json:"from_me"`
	SenderLabel string `json:"sender_label"`
	Status      string `json:"status"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// MessageStatus is emitted when a message's delivery status moves forward.
// After a send is reconciled ReplacesID names the provisional identifier
// and Ref carries the renamed media reference, if any.
type MessageStatus struct {
	PeerID     string `json:"peer_id"`
	ID         string `json:"id"`
	Status     string `json:"status"`
	ReplacesID string `json:"replaces_id,omitempty"`
	Ref        string `json:"ref,omitempty"`
}

// ConversationRead is emitted after an operator marks a conversation read.
type ConversationRead struct {
	PeerID string `json:"peer_id"`
}

// ConversationUpdated is emitted when conversation metadata changes or it is deleted.
type ConversationUpdated struct {
	PeerID         string `json:"peer_id"`
	WorkflowStatus string `json:"workflow_status,omitempty"`
	Deleted        bool   `json:"deleted,omitempty"`
}

// UnreadUpdate carries the recomputed unread count for a conversation.
type UnreadUpdate struct {
	PeerID string `json:"peer_id"`
	Count  int    `json:"count"`
}

// SessionStatus is emitted on every connection state transition.
type SessionStatus struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Attempts int    `json:"attempts"`
}

// SessionPairing carries a fresh pairing token, or an empty one once consumed.
type SessionPairing struct {
	Token string `json:"token"`
}

package store

import "fmt"

// Status is a message delivery status. Values match the network's receipt
// codes and only ever move forward.
type Status int

const (
	StatusPending   Status = 1
	StatusSent      Status = 2
	StatusDelivered Status = 3
	StatusRead      Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	case StatusRead:
		return "read"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// StatusFromCode maps an external receipt code to a Status.
func StatusFromCode(code int) (Status, bool) {
	s := Status(code)
	return s, s >= StatusPending && s <= StatusRead
}

// MessageKind is the payload kind of a message.
type MessageKind string

const (
	KindText    MessageKind = "text"
	KindSticker MessageKind = "sticker"
	KindAudio   MessageKind = "audio"
)

// PeerKind classifies a conversation peer.
type PeerKind string

const (
	PeerDirect    PeerKind = "direct"
	PeerGroup     PeerKind = "group"
	PeerBroadcast PeerKind = "broadcast"
	PeerUnknown   PeerKind = "unknown"
)

// DefaultWorkflowStatus is assigned to every new conversation.
const DefaultWorkflowStatus = "queue"

// DefaultConversationName labels conversations whose peer has no known name.
const DefaultConversationName = "Usuário"

// Conversation is a peer and its metadata. Messages are read separately.
type Conversation struct {
	JID                string
	Name               string
	AvatarURL          string
	Kind               PeerKind
	WorkflowStatus     string
	LastMessageAt      int64
	LastMessagePreview string
	UnreadCount        int
	CreatedAt          int64
}

// Message is one entry of a conversation log.
type Message struct {
	Seq             int64
	ConversationJID string
	ID              string
	Kind            MessageKind
	Body            string
	MediaRef        string
	FromMe          bool
	SenderName      string
	Status          Status
	Timestamp       int64
}

// Contact is an operator-maintained address book entry.
type Contact struct {
	JID       string
	Name      string
	Number    string
	AvatarURL string
}

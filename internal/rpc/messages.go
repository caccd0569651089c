package rpc

import "encoding/json"

// Empty is the request or response of calls that carry nothing.
type Empty struct{}

// SessionStatus is the answer to SessionService.GetStatus.
type SessionStatus struct {
	Session           string `json:"session"`
	Status            string `json:"status"`
	Attempts          int    `json:"attempts"`
	PairingPending    bool   `json:"pairing_pending"`
	HasCredentials    bool   `json:"has_credentials"`
	PhoneNumber       string `json:"phone_number,omitempty"`
	ConversationCount int64  `json:"conversation_count"`
	MessageCount      int64  `json:"message_count"`
	SinceMs           int64  `json:"since_ms"`
	UptimeMs          int64  `json:"uptime_ms"`
}

// Pairing is an outstanding pairing challenge. PNG is a data URL.
type Pairing struct {
	Token string `json:"token"`
	PNG   string `json:"png"`
}

type ResetRequest struct {
	Reconnect bool `json:"reconnect"`
}

type Health struct {
	OK            bool   `json:"ok"`
	Status        string `json:"status"`
	UptimeMs      int64  `json:"uptime_ms"`
	DroppedEvents uint64 `json:"dropped_events"`
	ActiveLanes   int    `json:"active_lanes"`
}

type Conversation struct {
	JID            string `json:"jid"`
	Name           string `json:"name"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	Kind           string `json:"kind"`
	WorkflowStatus string `json:"workflow_status"`
	LastMessageAt  int64  `json:"last_message_at"`
	Preview        string `json:"preview,omitempty"`
	Unread         int    `json:"unread"`
}

type ListConversationsRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type ConversationList struct {
	Conversations []Conversation `json:"conversations"`
	Total         int64          `json:"total"`
}

// PeerRequest addresses one conversation.
type PeerRequest struct {
	Peer string `json:"peer"`
}

type ConversationDetail struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

type WorkflowRequest struct {
	Peer   string `json:"peer"`
	Status string `json:"status"`
}

type MarkReadResponse struct {
	Marked int `json:"marked"`
}

type UnreadTotal struct {
	Count int `json:"count"`
}

type ListMessagesRequest struct {
	Peer      string `json:"peer"`
	BeforeSeq int64  `json:"before_seq,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type MessageList struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

type Message struct {
	Seq         int64  `json:"seq"`
	Peer        string `json:"peer"`
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Text        string `json:"text,omitempty"`
	Ref         string `json:"ref,omitempty"`
	FromMe      bool   `json:"from_me"`
	SenderName  string `json:"sender_name,omitempty"`
	Status      string `json:"status"`
	TimestampMs int64  `json:"timestamp_ms"`
}

type SendTextRequest struct {
	Peer string `json:"peer"`
	Text string `json:"text"`
}

// SendMediaRequest carries raw bytes; Kind is "audio" or "sticker".
type SendMediaRequest struct {
	Peer     string `json:"peer"`
	Kind     string `json:"kind"`
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data"`
}

type RetryRequest struct {
	Peer string `json:"peer"`
	ID   string `json:"id"`
}

type SendResponse struct {
	Message Message `json:"message"`
}

type Contact struct {
	JID       string `json:"jid"`
	Name      string `json:"name"`
	Number    string `json:"number"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type AddContactRequest struct {
	Name      string `json:"name"`
	Number    string `json:"number"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type ContactList struct {
	Contacts []Contact `json:"contacts"`
}

// ContactExistsRequest matches by JID or number, whichever is set.
type ContactExistsRequest struct {
	JID    string `json:"jid,omitempty"`
	Number string `json:"number,omitempty"`
}

type ContactExists struct {
	Exists bool `json:"exists"`
}

type ContactRequest struct {
	JID string `json:"jid"`
}

// SaveStickerRequest saves either uploaded bytes or an existing media reference.
type SaveStickerRequest struct {
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FromRef  string `json:"from_ref,omitempty"`
}

type Sticker struct {
	Ref       string `json:"ref"`
	Name      string `json:"name"`
	SavedAtMs int64  `json:"saved_at_ms"`
}

type StickerList struct {
	Stickers []Sticker `json:"stickers"`
}

// WatchRequest filters the event stream by kind prefix; empty means all.
type WatchRequest struct {
	Prefix string `json:"prefix,omitempty"`
}

type Event struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	TimestampMs int64           `json:"timestamp_ms"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

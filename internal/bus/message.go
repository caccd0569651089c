package bus

import "github.com/matheus3301/wppdesk/internal/store"

// NewMessage builds the message.new payload for a persisted message.
func NewMessage(m *store.Message, senderLabel string) MessageNew {
	evt := MessageNew{
		PeerID:      m.ConversationJID,
		ID:          m.ID,
		Kind:        string(m.Kind),
		FromMe:      m.FromMe,
		SenderLabel: senderLabel,
		Status:      m.Status.String(),
		TimestampMs: m.Timestamp,
	}
	if m.MediaRef != "" {
		evt.Ref = m.MediaRef
	} else {
		evt.Text = m.Body
	}
	return evt
}

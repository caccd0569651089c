package api

import (
	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/store"
)

func conversationToRPC(c *store.Conversation) rpc.Conversation {
	return rpc.Conversation{
		JID:            c.JID,
		Name:           c.Name,
		AvatarURL:      c.AvatarURL,
		Kind:           string(c.Kind),
		WorkflowStatus: c.WorkflowStatus,
		LastMessageAt:  c.LastMessageAt,
		Preview:        c.LastMessagePreview,
		Unread:         c.UnreadCount,
	}
}

func messageToRPC(m *store.Message) rpc.Message {
	return rpc.Message{
		Seq:         m.Seq,
		Peer:        m.ConversationJID,
		ID:          m.ID,
		Kind:        string(m.Kind),
		Text:        m.Body,
		Ref:         m.MediaRef,
		FromMe:      m.FromMe,
		SenderName:  m.SenderName,
		Status:      m.Status.String(),
		TimestampMs: m.Timestamp,
	}
}

func contactToRPC(c *store.Contact) rpc.Contact {
	return rpc.Contact{JID: c.JID, Name: c.Name, Number: c.Number, AvatarURL: c.AvatarURL}
}

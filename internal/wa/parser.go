package wa

import (
	"strings"

	"github.com/matheus3301/wppdesk/internal/transport"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// ParseMessage normalizes a live whatsmeow message addressed to peer.
// Messages with nothing the desk can render are rejected.
func ParseMessage(evt *events.Message, peer string) (transport.Inbound, bool) {
	if evt == nil || evt.Message == nil {
		return transport.Inbound{}, false
	}
	in := transport.Inbound{
		Peer:      peer,
		ID:        evt.Info.ID,
		FromMe:    evt.Info.IsFromMe,
		PushName:  evt.Info.PushName,
		Timestamp: evt.Info.Timestamp,
	}

	msg := evt.Message
	switch detectMessageType(msg) {
	case "text":
		in.Kind = transport.ContentText
		in.Text = extractTextBody(msg)
		if in.Text == "" {
			return transport.Inbound{}, false
		}
	case "sticker":
		in.Kind = transport.ContentSticker
		in.Media = &transport.MediaRef{Kind: transport.ContentSticker, Handle: whatsmeow.DownloadableMessage(msg.GetStickerMessage())}
	case "audio":
		in.Kind = transport.ContentAudio
		in.Media = &transport.MediaRef{Kind: transport.ContentAudio, Handle: whatsmeow.DownloadableMessage(msg.GetAudioMessage())}
	case "image", "video", "document":
		in.Kind = transport.ContentText
		in.Text = extractCaption(msg)
		if in.Text == "" {
			return transport.Inbound{}, false
		}
	default:
		return transport.Inbound{}, false
	}
	return in, true
}

func extractCaption(msg *waE2E.Message) string {
	switch {
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetCaption()
	}
	return ""
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}

func detectMessageType(msg *waE2E.Message) string {
	if msg == nil {
		return "unknown"
	}
	switch {
	case msg.GetConversation() != "" || msg.GetExtendedTextMessage() != nil:
		return "text"
	case msg.GetImageMessage() != nil:
		return "image"
	case msg.GetVideoMessage() != nil:
		return "video"
	case msg.GetAudioMessage() != nil:
		return "audio"
	case msg.GetDocumentMessage() != nil:
		return "document"
	case msg.GetStickerMessage() != nil:
		return "sticker"
	case msg.GetContactMessage() != nil:
		return "contact"
	case msg.GetLocationMessage() != nil:
		return "location"
	default:
		return "unknown"
	}
}

// NormalizeJID strips device and agent suffixes so every message from one
// account lands in the same conversation. Unparseable input is returned as is.
func NormalizeJID(s string) string {
	if s == "" {
		return ""
	}
	jid, err := types.ParseJID(s)
	if err != nil || jid.User == "" {
		return s
	}
	return jid.ToNonAD().String()
}

// PhoneJID builds the direct-chat JID for a phone number, ignoring
// formatting characters. It returns "" when no digits remain.
func PhoneJID(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	return types.NewJID(digits, types.DefaultUserServer).String()
}

package wa

import (
	"testing"
	"time"

	"github.com/matheus3301/wppdesk/internal/transport"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func TestExtractTextBody(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil message", nil, ""},
		{"conversation", &waE2E.Message{Conversation: proto.String("hello")}, "hello"},
		{"extended text", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("extended")}}, "extended"},
		{"image (no text)", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, ""},
		{"empty conversation", &waE2E.Message{Conversation: proto.String("")}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTextBody(tt.msg)
			if got != tt.want {
				t.Errorf("extractTextBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectMessageType(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil", nil, "unknown"},
		{"text conversation", &waE2E.Message{Conversation: proto.String("hi")}, "text"},
		{"extended text", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("hi")}}, "text"},
		{"image", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, "image"},
		{"audio", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}, "audio"},
		{"sticker", &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}, "sticker"},
		{"location", &waE2E.Message{LocationMessage: &waE2E.LocationMessage{}}, "location"},
		{"empty message", &waE2E.Message{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectMessageType(tt.msg)
			if got != tt.want {
				t.Errorf("detectMessageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func messageEvent(msg *waE2E.Message) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			PushName:  "Alice",
			Timestamp: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
			MessageSource: types.MessageSource{
				Chat:   types.JID{User: "5511999990000", Server: types.DefaultUserServer},
				Sender: types.JID{User: "5511999990000", Server: types.DefaultUserServer},
			},
			ID: "MSG123",
		},
		Message: msg,
	}
}

func TestParseMessageText(t *testing.T) {
	evt := messageEvent(&waE2E.Message{Conversation: proto.String("hello world")})

	in, ok := ParseMessage(evt, "5511999990000@s.whatsapp.net")
	if !ok {
		t.Fatal("ParseMessage() rejected a text message")
	}
	if in.Peer != "5511999990000@s.whatsapp.net" || in.ID != "MSG123" {
		t.Errorf("Peer/ID = %q/%q", in.Peer, in.ID)
	}
	if in.Kind != transport.ContentText || in.Text != "hello world" {
		t.Errorf("Kind/Text = %q/%q", in.Kind, in.Text)
	}
	if in.PushName != "Alice" || in.FromMe {
		t.Errorf("PushName/FromMe = %q/%v", in.PushName, in.FromMe)
	}
	if in.Media != nil {
		t.Error("text message should carry no media")
	}
}

func TestParseMessageMedia(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want transport.ContentKind
	}{
		{"sticker", &waE2E.Message{StickerMessage: &waE2E.StickerMessage{Mimetype: proto.String("image/webp")}}, transport.ContentSticker},
		{"audio", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true)}}, transport.ContentAudio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := ParseMessage(messageEvent(tt.msg), "p@s.whatsapp.net")
			if !ok {
				t.Fatal("ParseMessage() rejected media")
			}
			if in.Kind != tt.want || in.Media == nil || in.Media.Kind != tt.want {
				t.Errorf("Kind = %q, Media = %+v", in.Kind, in.Media)
			}
			if in.Media.Handle == nil {
				t.Error("media handle is nil")
			}
		})
	}
}

func TestParseMessageCaptionAsText(t *testing.T) {
	evt := messageEvent(&waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("look")}})
	in, ok := ParseMessage(evt, "p@s.whatsapp.net")
	if !ok || in.Kind != transport.ContentText || in.Text != "look" {
		t.Errorf("ParseMessage(captioned image) = %+v, %v", in, ok)
	}
}

func TestParseMessageRejectsUnsupported(t *testing.T) {
	for name, msg := range map[string]*waE2E.Message{
		"image":      {ImageMessage: &waE2E.ImageMessage{}},
		"empty text": {ExtendedTextMessage: &waE2E.ExtendedTextMessage{}},
		"empty":      {},
		"nil":        nil,
	} {
		if _, ok := ParseMessage(messageEvent(msg), "p@s.whatsapp.net"); ok {
			t.Errorf("%s: ParseMessage() accepted", name)
		}
	}
}

// Device suffixes must not split one contact into several conversations.
func TestNormalizeJID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"558592403672@s.whatsapp.net", "558592403672@s.whatsapp.net"},
		{"558592403672:0@s.whatsapp.net", "558592403672@s.whatsapp.net"},
		{"558592403672:5@s.whatsapp.net", "558592403672@s.whatsapp.net"},
		{"120363123456@g.us", "120363123456@g.us"},
		{"", ""},
		{"invalid", "invalid"},
		{"3917077286968@lid", "3917077286968@lid"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeJID(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeJID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPhoneJID(t *testing.T) {
	if got := PhoneJID("+55 (85) 9240-3672"); got != "558592403672@s.whatsapp.net" {
		t.Errorf("PhoneJID() = %q", got)
	}
	if got := PhoneJID("abc"); got != "" {
		t.Errorf("PhoneJID(abc) = %q, want empty", got)
	}
}

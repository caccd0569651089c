package views

import (
	"fmt"

	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageView displays the messages of one conversation.
type MessageView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewMessageView creates a new message view.
func NewMessageView(theme *ui.Theme) *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Messages ")
	tv.SetBorderColor(theme.BorderColor)
	tv.SetTitleColor(theme.TitleColor)
	return &MessageView{TextView: tv, theme: theme}
}

// SetTitleName updates the title with the conversation name.
func (mv *MessageView) SetTitleName(name string) {
	mv.SetTitle(fmt.Sprintf(" %s ", displayText(name, false)))
}

// Update refreshes the view. msgs are in log order, oldest first.
func (mv *MessageView) Update(msgs []rpc.Message) {
	mv.Clear()
	for _, m := range msgs {
		sender := m.SenderName
		if m.FromMe {
			sender = "Você"
		}
		body := tview.Escape(displayText(m.Text, true))
		switch {
		case m.Kind == "sticker" && m.Ref != "":
			body = "[::i]figurinha " + m.Ref + "[::-]"
		case m.Kind == "audio" && m.Ref != "":
			body = "[::i]áudio " + m.Ref + "[::-]"
		}
		_, _ = fmt.Fprintf(mv, "[::b]%s[-:-:-] %s%s[-] %s\n%s\n\n",
			tview.Escape(displayText(sender, false)),
			ui.Tag(mv.theme.DimColor), formatTimestamp(m.TimestampMs),
			mv.glyph(m), body)
	}
	mv.ScrollToEnd()
}

// glyph renders the delivery status of operator messages.
func (mv *MessageView) glyph(m rpc.Message) string {
	if !m.FromMe {
		return ""
	}
	return StatusGlyph(m.Status, ui.Tag(mv.theme.DimColor), ui.Tag(mv.theme.ReadTickColor))
}

// StatusGlyph maps a delivery status to ◷, ✓, ✓✓ or a highlighted ✓✓ for read.
func StatusGlyph(status, dimTag, readTag string) string {
	switch status {
	case "pending":
		return dimTag + "◷[-]"
	case "sent":
		return dimTag + "✓[-]"
	case "delivered":
		return dimTag + "✓✓[-]"
	case "read":
		return readTag + "✓✓[-]"
	}
	return ""
}

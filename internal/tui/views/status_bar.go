package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/wppdesk/internal/tui/model"
	"github.com/matheus3301/wppdesk/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays session, connection status, unread total and the flash message.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	session string
	status  string
	unread  int
	hints   []string
	flash   model.Notice
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetStatus updates the connection status display.
func (sb *StatusBar) SetStatus(status string, unread int) {
	sb.status = status
	sb.unread = unread
	sb.render()
}

// SetHints sets the key hints for the current page.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

// SetFlash shows n, or clears the flash slot when ok is false.
func (sb *StatusBar) SetFlash(n model.Notice, ok bool) {
	if !ok {
		n = model.Notice{}
	}
	sb.flash = n
	sb.render()
}

func statusTag(status string) string {
	switch status {
	case "connected":
		return "[green]"
	case "disconnected":
		return "[red]"
	default:
		return "[yellow]"
	}
}

func (sb *StatusBar) render() {
	sb.Clear()

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s%s[-]", sb.session, statusTag(sb.status), sb.status)
	if sb.unread > 0 {
		line += fmt.Sprintf(" | %s%d unread[-]", ui.Tag(sb.theme.UnreadColor), sb.unread)
	}
	line += " | " + time.Now().Format("15:04")
	if len(sb.hints) > 0 {
		line += " | [::d]" + strings.Join(sb.hints, " ") + "[::-]"
	}
	if sb.flash.Text != "" {
		color := sb.theme.FlashColor
		if sb.flash.Error {
			color = sb.theme.ErrorColor
		}
		line += fmt.Sprintf(" | %s%s[-]", ui.Tag(color), tview.Escape(sb.flash.Text))
	}

	_, _ = fmt.Fprint(sb, line)
}

package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/wppdesk/internal/tui/ui"
	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"
)

// PairingView displays the pending pairing challenge as a QR code.
type PairingView struct {
	*tview.TextView
	token string
}

// NewPairingView creates a new pairing view.
func NewPairingView(theme *ui.Theme) *PairingView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Pair this desk ")
	tv.SetTitleColor(theme.TitleColor)

	return &PairingView{TextView: tv}
}

// ShowQR renders token as a scannable block. Re-rendering the same token is a no-op.
func (pv *PairingView) ShowQR(token string) {
	if token == pv.token {
		return
	}
	pv.token = token
	pv.Clear()
	_, _ = fmt.Fprintf(pv, "\nScan with WhatsApp > Linked devices > Link a device:\n\n%s\n[::d]Waiting for the phone...", RenderQR(token))
}

// ShowMessage displays a status message.
func (pv *PairingView) ShowMessage(msg string) {
	pv.token = ""
	pv.Clear()
	_, _ = fmt.Fprintf(pv, "\n\n%s", tview.Escape(msg))
}

// RenderQR converts content to a compact QR code drawn with Unicode
// half-block characters, two modules per text row.
func RenderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "(QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}

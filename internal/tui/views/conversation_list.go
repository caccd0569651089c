package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the main conversation table.
type ConversationList struct {
	*tview.Table
	theme *ui.Theme
	convs []rpc.Conversation
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.CursorFg).
		Background(theme.CursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{Table: table, theme: theme}
}

// Update re-renders the table, keeping the cursor on the same peer when possible.
func (cl *ConversationList) Update(convs []rpc.Conversation) {
	selected := cl.Selected()
	cl.convs = convs
	cl.Clear()

	for col, h := range []string{"", " NAME", " STATUS", " LAST MESSAGE", " TIME"} {
		cl.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(cl.theme.HeaderColor).
			SetAttributes(tcell.AttrBold))
	}

	cursor := 1
	for i, c := range convs {
		row := i + 1
		marker := " "
		if c.Unread > 0 {
			marker = fmt.Sprintf("%d", c.Unread)
			if c.Unread > 9 {
				marker = "+"
			}
		}
		name := c.Name
		if name == "" {
			name = c.JID
		}
		nameCell := tview.NewTableCell(" " + displayText(name, false)).SetMaxWidth(30).SetExpansion(1)
		if c.Unread > 0 {
			nameCell.SetAttributes(tcell.AttrBold)
		}
		cl.SetCell(row, 0, tview.NewTableCell(marker).SetTextColor(cl.theme.UnreadColor))
		cl.SetCell(row, 1, nameCell)
		cl.SetCell(row, 2, tview.NewTableCell(" "+c.WorkflowStatus).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(" "+displayText(c.Preview, false)).SetMaxWidth(40).SetExpansion(2))
		cl.SetCell(row, 4, tview.NewTableCell(" "+formatTimestamp(c.LastMessageAt)).SetTextColor(cl.theme.DimColor))
		if c.JID == selected {
			cursor = row
		}
	}
	if len(convs) > 0 {
		cl.Select(cursor, 0)
	}
}

// Selected returns the JID under the cursor.
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	idx := row - 1 // header
	if idx >= 0 && idx < len(cl.convs) {
		return cl.convs[idx].JID
	}
	return ""
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("02/01")
}

package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor       tcell.Color
	FgColor       tcell.Color
	BorderColor   tcell.Color
	TitleColor    tcell.Color
	HeaderColor   tcell.Color
	CursorFg      tcell.Color
	CursorBg      tcell.Color
	UnreadColor   tcell.Color
	DimColor      tcell.Color
	ReadTickColor tcell.Color
	FlashColor    tcell.Color
	ErrorColor    tcell.Color
}

// DefaultTheme returns a k9s-inspired dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:       tcell.ColorBlack,
		FgColor:       tcell.ColorCadetBlue,
		BorderColor:   tcell.ColorDodgerBlue,
		TitleColor:    tcell.ColorFuchsia,
		HeaderColor:   tcell.ColorWhite,
		CursorFg:      tcell.ColorBlack,
		CursorBg:      tcell.ColorAqua,
		UnreadColor:   tcell.ColorOrange,
		DimColor:      tcell.ColorGray,
		ReadTickColor: tcell.ColorDeepSkyBlue,
		FlashColor:    tcell.ColorNavajoWhite,
		ErrorColor:    tcell.ColorRed,
	}
}

// Tag renders c as a tview color tag.
func Tag(c tcell.Color) string {
	return "[" + c.String() + "]"
}

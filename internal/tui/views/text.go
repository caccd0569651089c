package views

import (
	"strings"
	"unicode"
)

// displayText prepares peer-supplied text for a tview cell. Emoji modifiers
// that tcell would lay out as extra cells are dropped, and control
// characters become spaces; newlines survive only when multiline is set.
func displayText(s string, multiline bool) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' && multiline:
			return r
		case emojiModifier(r):
			return -1
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, s)
}

func emojiModifier(r rune) bool {
	return (r >= 0x1F3FB && r <= 0x1F3FF) || // skin tones
		r == 0x200D || // zero width joiner
		(r >= 0xFE00 && r <= 0xFE0F) ||
		(r >= 0xE0100 && r <= 0xE01EF)
}

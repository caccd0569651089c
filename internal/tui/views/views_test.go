package views

import (
	"strings"
	"testing"
)

func TestDisplayText(t *testing.T) {
	tests := []struct {
		in        string
		multiline bool
		want      string
	}{
		{"bom dia", false, "bom dia"},
		{"👍🏻", false, "👍"},
		{"❤️", false, "❤"},
		{"👨‍👩‍👧", false, "👨👩👧"},
		{"linha 1\nlinha 2", false, "linha 1 linha 2"},
		{"linha 1\nlinha 2", true, "linha 1\nlinha 2"},
		{"tab\there", true, "tab here"},
	}
	for _, tt := range tests {
		if got := displayText(tt.in, tt.multiline); got != tt.want {
			t.Errorf("displayText(%q, %v) = %q, want %q", tt.in, tt.multiline, got, tt.want)
		}
	}
}

func TestStatusGlyph(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"pending", "<d>◷[-]"},
		{"sent", "<d>✓[-]"},
		{"delivered", "<d>✓✓[-]"},
		{"read", "<r>✓✓[-]"},
		{"bogus", ""},
	}
	for _, tt := range tests {
		if got := StatusGlyph(tt.status, "<d>", "<r>"); got != tt.want {
			t.Errorf("StatusGlyph(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestRenderQRUsesHalfBlocks(t *testing.T) {
	out := RenderQR("2@abc,def,ghi")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("RenderQR produced %d lines", len(lines))
	}
	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("RenderQR output has no block characters")
	}
}

func TestFormatTimestampEmpty(t *testing.T) {
	if got := formatTimestamp(0); got != "" {
		t.Errorf("formatTimestamp(0) = %q, want empty", got)
	}
}

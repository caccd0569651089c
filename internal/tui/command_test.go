package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    Command
		wantErr bool
	}{
		{in: "read", want: Command{Name: "read"}},
		{in: "R", want: Command{Name: "read"}},
		{in: "  Workflow   done ", want: Command{Name: "workflow", Arg: "done"}},
		{in: "w", want: Command{Name: "workflow"}},
		{in: "retry temp-1700000000000-ab12cd34", want: Command{Name: "retry", Arg: "temp-1700000000000-ab12cd34"}},
		{in: "retry", wantErr: true},
		{in: "read now", wantErr: true},
		{in: "shrug", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCommand(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

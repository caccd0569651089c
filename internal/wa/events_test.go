package wa

import (
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/wppdesk/internal/transport"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

func TestCloseReason(t *testing.T) {
	tests := []struct {
		name string
		evt  any
		want transport.Reason
	}{
		{"logged out", &events.LoggedOut{Reason: events.ConnectFailureLoggedOut}, transport.ReasonLoggedOut},
		{"replaced", &events.StreamReplaced{}, transport.ReasonReplaced},
		{"banned", &events.TemporaryBan{}, transport.ReasonBanned},
		{"outdated", &events.ClientOutdated{}, transport.ReasonClientOutdated},
		{"cat invalid", &events.ConnectFailure{Reason: events.ConnectFailureCATInvalid}, transport.ReasonBadSession},
		{"cat expired", &events.ConnectFailure{Reason: events.ConnectFailureCATExpired}, transport.ReasonBadSession},
		{"failure logged out", &events.ConnectFailure{Reason: events.ConnectFailureLoggedOut}, transport.ReasonLoggedOut},
		{"failure other", &events.ConnectFailure{Reason: events.ConnectFailureInternalServerError}, transport.ReasonUnknown},
		{"stream error", &events.StreamError{Code: "515"}, transport.ReasonRestartRequired},
		{"disconnected", &events.Disconnected{}, transport.ReasonConnectionClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := closeReason(tt.evt)
			if !ok {
				t.Fatal("closeReason() did not classify event")
			}
			if got != tt.want {
				t.Errorf("closeReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCloseReasonIgnoresOthers(t *testing.T) {
	for _, evt := range []any{&events.Connected{}, &events.Message{}, &events.Receipt{}, &events.KeepAliveTimeout{ErrorCount: 1}, &events.KeepAliveRestored{}, "x"} {
		if _, _, ok := closeReason(evt); ok {
			t.Errorf("closeReason(%T) classified a non-close event", evt)
		}
	}
}

func TestKeepAliveExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		lastSuccess time.Time
		want        bool
	}{
		{"single miss", now.Add(-30 * time.Second), false},
		{"just under limit", now.Add(-keepAliveMaxFail + time.Second), false},
		{"at limit", now.Add(-keepAliveMaxFail), true},
		{"long dead", now.Add(-10 * time.Minute), true},
		{"never succeeded", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := &events.KeepAliveTimeout{ErrorCount: 2, LastSuccess: tt.lastSuccess}
			if got := keepAliveExpired(evt, now); got != tt.want {
				t.Errorf("keepAliveExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReceiptCode(t *testing.T) {
	tests := []struct {
		typ    types.ReceiptType
		want   int
		wantOK bool
	}{
		{types.ReceiptTypeDelivered, 3, true},
		{types.ReceiptTypeRead, 4, true},
		{types.ReceiptTypeReadSelf, 4, true},
		{types.ReceiptTypePlayed, 4, true},
		{types.ReceiptTypeSender, 0, false},
		{types.ReceiptTypeRetry, 0, false},
	}
	for _, tt := range tests {
		got, ok := receiptCode(tt.typ)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("receiptCode(%q) = %d,%v want %d,%v", tt.typ, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestQREvent(t *testing.T) {
	evt, ok := qrEvent(whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventCode, Code: "2@abc"})
	if !ok {
		t.Fatal("code item not forwarded")
	}
	if pc, isCode := evt.(transport.PairingCode); !isCode || pc.Token != "2@abc" {
		t.Errorf("qrEvent(code) = %#v", evt)
	}

	evt, ok = qrEvent(whatsmeow.QRChannelItem{Event: "timeout"})
	if closed, isClosed := evt.(transport.Closed); !ok || !isClosed || closed.Reason != transport.ReasonTimedOut {
		t.Errorf("qrEvent(timeout) = %#v", evt)
	}

	if _, ok := qrEvent(whatsmeow.QRChannelItem{Event: "success"}); ok {
		t.Error("success should be reported by PairSuccess, not the QR channel")
	}

	evt, ok = qrEvent(whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventError, Error: errors.New("boom")})
	if closed, isClosed := evt.(transport.Closed); !ok || !isClosed || closed.Detail != "boom" {
		t.Errorf("qrEvent(error) = %#v", evt)
	}
}

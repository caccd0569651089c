package wa

import (
	"context"
	"time"

	"github.com/matheus3301/wppdesk/internal/transport"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

var keepAliveMaxFail = whatsmeow.KeepAliveMaxFailTime

// handle is registered on every client and turns whatsmeow events into
// transport events.
func (a *Adapter) handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		peer := a.ResolveLID(context.Background(), evt.Info.Chat).ToNonAD()
		if in, ok := ParseMessage(evt, peer.String()); ok {
			a.emit(transport.MessageReceived{Message: in})
		}
	case *events.Receipt:
		code, ok := receiptCode(evt.Type)
		if !ok || len(evt.MessageIDs) == 0 {
			return
		}
		peer := a.ResolveLID(context.Background(), evt.Chat).ToNonAD()
		a.emit(transport.StatusChanged{Peer: peer.String(), IDs: append([]string(nil), evt.MessageIDs...), Code: code})
	case *events.Connected:
		a.logger.Info("WhatsApp connected")
		a.linkLost.Store(false)
		a.emit(transport.Opened{})
	case *events.KeepAliveTimeout:
		a.keepAliveTimeout(evt)
	case *events.KeepAliveRestored:
		a.logger.Info("keepalive restored")
	case *events.PairSuccess:
		a.logger.Info("pairing succeeded", zap.String("jid", evt.ID.String()), zap.String("platform", evt.Platform))
		a.emit(transport.CredentialsRotated{})
	default:
		if reason, detail, ok := closeReason(rawEvt); ok {
			a.logger.Warn("WhatsApp session closed", zap.String("reason", string(reason)), zap.String("detail", detail))
			a.emit(transport.Closed{Reason: reason, Detail: detail})
		}
	}
}

// closeReason classifies the whatsmeow events that end a session.
func closeReason(rawEvt any) (transport.Reason, string, bool) {
	switch evt := rawEvt.(type) {
	case *events.LoggedOut:
		return transport.ReasonLoggedOut, evt.Reason.String(), true
	case *events.StreamReplaced:
		return transport.ReasonReplaced, "", true
	case *events.TemporaryBan:
		return transport.ReasonBanned, evt.String(), true
	case *events.ClientOutdated:
		return transport.ReasonClientOutdated, "", true
	case *events.ConnectFailure:
		switch {
		case evt.Reason.IsLoggedOut():
			return transport.ReasonLoggedOut, evt.Message, true
		case evt.Reason == events.ConnectFailureCATInvalid, evt.Reason == events.ConnectFailureCATExpired:
			return transport.ReasonBadSession, evt.Message, true
		case evt.Reason == events.ConnectFailureClientOutdated:
			return transport.ReasonClientOutdated, evt.Message, true
		case evt.Reason == events.ConnectFailureTempBanned:
			return transport.ReasonBanned, evt.Message, true
		}
		return transport.ReasonUnknown, evt.Reason.String(), true
	case *events.StreamError:
		return transport.ReasonRestartRequired, evt.Code, true
	case *events.Disconnected:
		return transport.ReasonConnectionClosed, "", true
	}
	return "", "", false
}

// keepAliveTimeout tolerates missed keepalives while the socket is up.
// Only once pings have failed for longer than keepAliveMaxFail is the link
// dropped and reported lost, so the supervisor redials a fresh socket.
func (a *Adapter) keepAliveTimeout(evt *events.KeepAliveTimeout) {
	if !keepAliveExpired(evt, time.Now()) {
		a.logger.Warn("keepalive missed", zap.Int("errors", evt.ErrorCount), zap.Time("last_success", evt.LastSuccess))
		return
	}
	if !a.linkLost.CompareAndSwap(false, true) {
		return
	}
	a.logger.Warn("keepalive failing, dropping link", zap.Time("last_success", evt.LastSuccess))
	a.current().Disconnect()
	a.emit(transport.Closed{Reason: transport.ReasonConnectionLost, Detail: "keepalive failed since " + evt.LastSuccess.Format(time.RFC3339)})
}

func keepAliveExpired(evt *events.KeepAliveTimeout, now time.Time) bool {
	return !evt.LastSuccess.IsZero() && now.Sub(evt.LastSuccess) >= keepAliveMaxFail
}

// receiptCode maps a receipt type onto the 1..4 delivery scale.
func receiptCode(t types.ReceiptType) (int, bool) {
	switch t {
	case types.ReceiptTypeDelivered:
		return 3, true
	case types.ReceiptTypeRead, types.ReceiptTypeReadSelf, types.ReceiptTypePlayed:
		return 4, true
	}
	return 0, false
}

// qrEvent converts a QR channel item. Success is reported separately by
// the PairSuccess event.
func qrEvent(item whatsmeow.QRChannelItem) (transport.Event, bool) {
	switch item.Event {
	case whatsmeow.QRChannelEventCode:
		return transport.PairingCode{Token: item.Code}, true
	case "timeout":
		return transport.Closed{Reason: transport.ReasonTimedOut, Detail: "pairing code expired"}, true
	case "success":
		return nil, false
	case "err-client-outdated":
		return transport.Closed{Reason: transport.ReasonClientOutdated}, true
	}
	detail := item.Event
	if item.Error != nil {
		detail = item.Error.Error()
	}
	return transport.Closed{Reason: transport.ReasonUnknown, Detail: detail}, true
}

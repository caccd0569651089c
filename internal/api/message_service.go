package api

import (
	"context"

	"github.com/matheus3301/wppdesk/internal/dispatch"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/store"
)

// Sender is the outbound side of the desk.
type Sender interface {
	SendText(ctx context.Context, req dispatch.TextRequest) (*store.Message, error)
	SendMedia(ctx context.Context, req dispatch.MediaRequest) (*store.Message, error)
	Retry(ctx context.Context, peer, id string) (*store.Message, error)
}

// MessageService implements rpc.MessageServer.
type MessageService struct {
	sender Sender
}

var _ rpc.MessageServer = (*MessageService)(nil)

// NewMessageService creates a new message service.
func NewMessageService(sender Sender) *MessageService {
	return &MessageService{sender: sender}
}

// SendText records the message as pending and transmits it. When the
// transport fails the message stays pending in the log and can be retried.
func (s *MessageService) SendText(ctx context.Context, req *rpc.SendTextRequest) (*rpc.SendResponse, error) {
	m, err := s.sender.SendText(ctx, dispatch.TextRequest{Peer: peerJID(req.Peer), Text: req.Text})
	return sendResult("send text", m, err)
}

func (s *MessageService) SendMedia(ctx context.Context, req *rpc.SendMediaRequest) (*rpc.SendResponse, error) {
	m, err := s.sender.SendMedia(ctx, dispatch.MediaRequest{
		Peer:     peerJID(req.Peer),
		Kind:     req.Kind,
		Data:     req.Data,
		MimeType: req.MimeType,
	})
	return sendResult("send media", m, err)
}

func (s *MessageService) Retry(ctx context.Context, req *rpc.RetryRequest) (*rpc.SendResponse, error) {
	m, err := s.sender.Retry(ctx, peerJID(req.Peer), req.ID)
	return sendResult("retry", m, err)
}

func sendResult(op string, m *store.Message, err error) (*rpc.SendResponse, error) {
	if err != nil {
		return nil, toStatus(op, err)
	}
	return &rpc.SendResponse{Message: messageToRPC(m)}, nil
}

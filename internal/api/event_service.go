package api

import (
	"encoding/json"

	"github.com/matheus3301/wppdesk/internal/bus"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const watchBuffer = 256

// EventService implements rpc.EventServer by relaying bus events.
type EventService struct {
	bus    *bus.Bus
	logger *zap.Logger
}

var _ rpc.EventServer = (*EventService)(nil)

// NewEventService creates a new event service.
func NewEventService(b *bus.Bus, logger *zap.Logger) *EventService {
	return &EventService{bus: b, logger: logger.Named("api")}
}

// Watch streams every bus event whose kind starts with req.Prefix until the
// client goes away.
func (s *EventService) Watch(req *rpc.WatchRequest, stream rpc.EventWatchServer) error {
	ch, unsub := s.bus.Subscribe(req.Prefix, watchBuffer)
	defer unsub()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-ch:
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				s.logger.Warn("encode event failed", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			err = stream.Send(&rpc.Event{
				ID:          evt.ID,
				Kind:        evt.Kind,
				TimestampMs: evt.Timestamp.UnixMilli(),
				Payload:     payload,
			})
			if err != nil {
				return grpcstatus.Errorf(codes.Unavailable, "watch: %v", err)
			}
		}
	}
}

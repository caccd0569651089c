package api

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/matheus3301/wppdesk/internal/bus"
	"github.com/matheus3301/wppdesk/internal/lanes"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/status"
	"github.com/matheus3301/wppdesk/internal/store"
	"github.com/matheus3301/wppdesk/internal/transport"
	qrcode "github.com/skip2/go-qrcode"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Supervisor is the part of the connection supervisor the API drives.
type Supervisor interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	ForceReset(ctx context.Context, reconnect bool) error
	CurrentStatus() status.Snapshot
	LatestPairingChallenge() (string, bool)
}

// phoneNumberer is implemented by transports that know the paired number.
type phoneNumberer interface {
	PhoneNumber() string
}

// SessionService implements rpc.SessionServer.
type SessionService struct {
	sessionName string
	startedAt   time.Time
	sup         Supervisor
	tr          transport.Transport
	db          *store.DB
	bus         *bus.Bus
	lanes       *lanes.Lanes
}

var _ rpc.SessionServer = (*SessionService)(nil)

// NewSessionService creates a new session service.
func NewSessionService(sessionName string, sup Supervisor, tr transport.Transport, db *store.DB, b *bus.Bus, ln *lanes.Lanes) *SessionService {
	return &SessionService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		sup:         sup,
		tr:          tr,
		db:          db,
		bus:         b,
		lanes:       ln,
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *rpc.Empty) (*rpc.SessionStatus, error) {
	snap := s.sup.CurrentStatus()
	resp := &rpc.SessionStatus{
		Session:        s.sessionName,
		Status:         string(snap.Status),
		Attempts:       snap.Attempts,
		PairingPending: snap.PairingToken != "",
		SinceMs:        snap.Since.UnixMilli(),
		UptimeMs:       time.Since(s.startedAt).Milliseconds(),
	}
	if s.tr != nil {
		resp.HasCredentials = s.tr.HasCredentials()
		if p, ok := s.tr.(phoneNumberer); ok {
			resp.PhoneNumber = p.PhoneNumber()
		}
	}
	if s.db != nil {
		if n, err := s.db.ConversationCount(); err == nil {
			resp.ConversationCount = n
		}
		if n, err := s.db.MessageCount(); err == nil {
			resp.MessageCount = n
		}
	}
	return resp, nil
}

func (s *SessionService) GetPairing(_ context.Context, _ *rpc.Empty) (*rpc.Pairing, error) {
	token, ok := s.sup.LatestPairingChallenge()
	if !ok {
		return nil, grpcstatus.Error(codes.NotFound, "no pairing challenge outstanding")
	}
	png, err := qrcode.Encode(token, qrcode.Medium, 256)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "render pairing code: %v", err)
	}
	return &rpc.Pairing{
		Token: token,
		PNG:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

func (s *SessionService) Reset(ctx context.Context, req *rpc.ResetRequest) (*rpc.Empty, error) {
	if err := s.sup.ForceReset(ctx, req.Reconnect); err != nil {
		return nil, toStatus("reset session", err)
	}
	return &rpc.Empty{}, nil
}

func (s *SessionService) Disconnect(ctx context.Context, _ *rpc.Empty) (*rpc.Empty, error) {
	if err := s.sup.Disconnect(ctx); err != nil {
		return nil, toStatus("disconnect session", err)
	}
	return &rpc.Empty{}, nil
}

func (s *SessionService) Connect(ctx context.Context, _ *rpc.Empty) (*rpc.Empty, error) {
	if err := s.sup.Connect(ctx); err != nil {
		return nil, toStatus("connect session", err)
	}
	return &rpc.Empty{}, nil
}

func (s *SessionService) Health(ctx context.Context, _ *rpc.Empty) (*rpc.Health, error) {
	resp := &rpc.Health{
		OK:       true,
		Status:   string(s.sup.CurrentStatus().Status),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
	}
	if s.bus != nil {
		resp.DroppedEvents = s.bus.Dropped()
	}
	if s.lanes != nil {
		resp.ActiveLanes = s.lanes.Active()
	}
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			resp.OK = false
		}
	}
	return resp, nil
}

package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/matheus3301/wppdesk/internal/api"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	maxMessageBytes = 64 << 20
	gracePeriod     = 3 * time.Second
)

// Services groups the RPC implementations served on the socket.
type Services struct {
	fx.In

	Session      *api.SessionService
	Conversation *api.ConversationService
	Message      *api.MessageService
	Contact      *api.ContactService
	Sticker      *api.StickerService
	Event        *api.EventService
}

// Server manages the gRPC server lifecycle for a session daemon.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the session's Unix domain socket.
func NewServer(p Params, logger *zap.Logger, svcs Services) (*Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = session.SocketPath(p.SessionName)
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), 0700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMessageBytes),
		grpc.MaxSendMsgSize(maxMessageBytes),
		grpc.ChainUnaryInterceptor(logUnary(logger)),
	)
	Register(srv, svcs)

	return &Server{
		grpcServer: srv,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Register attaches every service to srv.
func Register(srv grpc.ServiceRegistrar, svcs Services) {
	rpc.RegisterSessionServer(srv, svcs.Session)
	rpc.RegisterConversationServer(srv, svcs.Conversation)
	rpc.RegisterMessageServer(srv, svcs.Message)
	rpc.RegisterContactServer(srv, svcs.Contact)
	rpc.RegisterStickerServer(srv, svcs.Sticker)
	rpc.RegisterEventServer(srv, svcs.Event)
}

func logUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	logger = logger.Named("rpc")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("took", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, zap.String("code", grpcstatus.Code(err).String()), zap.Error(err))
			logger.Warn("rpc failed", fields...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}

// Start begins serving gRPC requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("gRPC server stopping")
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	// Watch streams never end on their own.
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	case <-time.After(gracePeriod):
		s.grpcServer.Stop()
	}
	_ = os.Remove(s.socketPath)
}

package daemon

import (
	"context"

	"github.com/matheus3301/wppdesk/internal/api"
	"github.com/matheus3301/wppdesk/internal/bus"
	"github.com/matheus3301/wppdesk/internal/codec"
	"github.com/matheus3301/wppdesk/internal/config"
	"github.com/matheus3301/wppdesk/internal/dispatch"
	"github.com/matheus3301/wppdesk/internal/ingest"
	"github.com/matheus3301/wppdesk/internal/lanes"
	"github.com/matheus3301/wppdesk/internal/lock"
	"github.com/matheus3301/wppdesk/internal/logging"
	"github.com/matheus3301/wppdesk/internal/media"
	"github.com/matheus3301/wppdesk/internal/session"
	"github.com/matheus3301/wppdesk/internal/status"
	"github.com/matheus3301/wppdesk/internal/store"
	"github.com/matheus3301/wppdesk/internal/supervisor"
	"github.com/matheus3301/wppdesk/internal/transport"
	"github.com/matheus3301/wppdesk/internal/wa"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxActiveLanes = 64

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	Config      *config.Config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideMedia,
			provideCodec,
			provideAdapter,
			provideTransport,
			provideLanes,
			provideSupervisor,
			provideIngest,
			provideDispatch,
			providePump,
			provideSessionService,
			provideConversationService,
			provideMessageService,
			provideContactService,
			provideStickerService,
			api.NewEventService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, p.Config.Log.Level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired", zap.String("path", session.LockPath(p.SessionName)))
	return l, nil
}

// provideStore depends on the lock so the database is never opened by two daemons.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.AppDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideMedia(p Params) (*media.Store, error) {
	return media.New(session.MediaDir(p.SessionName))
}

func provideCodec(p Params, logger *zap.Logger) codec.Normalizer {
	ff := codec.NewFFmpeg(p.Config.Codec.FFmpegPath, logger)
	if !ff.Available() {
		logger.Warn("ffmpeg not found; audio and non-webp sticker sends will fail",
			zap.String("path", p.Config.Codec.FFmpegPath))
	}
	return ff
}

func provideAdapter(p Params, _ *lock.Lock, logger *zap.Logger) (*wa.Adapter, error) {
	return wa.NewAdapter(context.Background(), session.CredentialsDBPath(p.SessionName), p.Config.Device.OSName, logger)
}

func provideTransport(a *wa.Adapter) transport.Transport {
	return a
}

func provideLanes(logger *zap.Logger) *lanes.Lanes {
	return lanes.New(maxActiveLanes, logger)
}

func provideSupervisor(tr transport.Transport, m *status.Machine, p Params, logger *zap.Logger) *supervisor.Supervisor {
	return supervisor.New(tr, m, p.Config.Reconnect, logger)
}

func provideIngest(db *store.DB, ms *media.Store, tr transport.Transport, b *bus.Bus, ln *lanes.Lanes, p Params, logger *zap.Logger) *ingest.Pipeline {
	return ingest.New(db, ms, tr, b, ln, p.Config.Limits, logger)
}

func provideDispatch(db *store.DB, ms *media.Store, tr transport.Transport, nz codec.Normalizer, b *bus.Bus, ln *lanes.Lanes, m *status.Machine, p Params, logger *zap.Logger) *dispatch.Pipeline {
	return dispatch.New(db, ms, tr, nz, b, ln, m, p.Config.Limits, logger)
}

func providePump(tr transport.Transport, sup *supervisor.Supervisor, ing *ingest.Pipeline, logger *zap.Logger) *Pump {
	return NewPump(tr, sup, ing, logger)
}

func provideSessionService(p Params, sup *supervisor.Supervisor, tr transport.Transport, db *store.DB, b *bus.Bus, ln *lanes.Lanes) *api.SessionService {
	return api.NewSessionService(p.SessionName, sup, tr, db, b, ln)
}

func provideConversationService(db *store.DB, ms *media.Store, d *dispatch.Pipeline, b *bus.Bus, logger *zap.Logger) *api.ConversationService {
	return api.NewConversationService(db, ms, d, b, logger)
}

func provideMessageService(d *dispatch.Pipeline) *api.MessageService {
	return api.NewMessageService(d)
}

func provideContactService(db *store.DB) *api.ContactService {
	return api.NewContactService(db)
}

func provideStickerService(ms *media.Store, nz codec.Normalizer, p Params, logger *zap.Logger) *api.StickerService {
	return api.NewStickerService(ms, nz, p.Config.Limits.MaxStickerBytes, logger)
}

type lifecycleDeps struct {
	fx.In

	Server     *Server
	Lock       *lock.Lock
	DB         *store.DB
	Adapter    *wa.Adapter
	Supervisor *supervisor.Supervisor
	Pump       *Pump
	Lanes      *lanes.Lanes
	Logger     *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			d.Pump.Start(context.Background())

			go func() {
				if err := d.Server.Start(); err != nil {
					d.Logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if !d.Adapter.HasCredentials() {
				d.Logger.Info("no credentials found, pairing required")
			}
			return d.Supervisor.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			d.Supervisor.Stop()
			d.Server.Stop(ctx)
			d.Pump.Stop()
			d.Lanes.Close()
			d.Adapter.Close()
			if err := d.DB.Close(); err != nil {
				d.Logger.Warn("error closing store", zap.Error(err))
			}
			if err := d.Lock.Release(); err != nil {
				d.Logger.Warn("error releasing lock", zap.Error(err))
			}
			d.Logger.Info("daemon stopped")
			_ = d.Logger.Sync()
			return nil
		},
	})
}

package wa

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/matheus3301/wppdesk/internal/logging"
	"github.com/matheus3301/wppdesk/internal/transport"
	"go.mau.fi/whatsmeow"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

const eventBuffer = 256

// Adapter wraps the whatsmeow client and implements transport.Transport.
type Adapter struct {
	mu        sync.RWMutex
	client    *whatsmeow.Client
	container *sqlstore.Container
	waLog     waLog.Logger
	logger    *zap.Logger

	pairCancel context.CancelFunc
	// linkLost is set once a dead keepalive link has been reported, so
	// repeated timeouts do not close the session again.
	linkLost atomic.Bool

	events chan transport.Event
	done   chan struct{}
	once   sync.Once
}

var _ transport.Transport = (*Adapter)(nil)

// NewAdapter opens the credential store at dbPath and prepares a client for
// its first device. deviceName is shown on the phone's linked devices list.
func NewAdapter(ctx context.Context, dbPath, deviceName string, logger *zap.Logger) (*Adapter, error) {
	wastore.SetOSInfo(deviceName, [3]uint32{0, 1, 0})

	wl := logging.WhatsApp(logger, "whatsmeow")
	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", dbPath),
		wl.Sub("store"),
	)
	if err != nil {
		return nil, fmt.Errorf("create credential store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	a := &Adapter{
		container: container,
		waLog:     wl,
		logger:    logger,
		events:    make(chan transport.Event, eventBuffer),
		done:      make(chan struct{}),
	}
	a.client = a.newClient(device)
	return a, nil
}

func (a *Adapter) newClient(device *wastore.Device) *whatsmeow.Client {
	cli := whatsmeow.NewClient(device, a.waLog.Sub("client"))
	// Reconnection is owned by the supervisor.
	cli.EnableAutoReconnect = false
	cli.AddEventHandler(a.handle)
	return cli
}

func (a *Adapter) current() *whatsmeow.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client
}

// Events implements transport.Transport.
func (a *Adapter) Events() <-chan transport.Event {
	return a.events
}

// HasCredentials reports whether a paired device is stored.
func (a *Adapter) HasCredentials() bool {
	return a.current().Store.ID != nil
}

// IsConnected reports whether the websocket is up and authenticated.
func (a *Adapter) IsConnected() bool {
	cli := a.current()
	return cli.IsConnected() && cli.IsLoggedIn()
}

// PhoneNumber returns the paired account's number, or empty string.
func (a *Adapter) PhoneNumber() string {
	cli := a.current()
	if cli.Store.ID == nil {
		return ""
	}
	return cli.Store.ID.User
}

// Connect dials the network. Without stored credentials a QR channel is
// opened first and its codes are forwarded as PairingCode events. A client
// that is already connected and logged in reports Opened again, so a caller
// waiting for the session to open is not left hanging.
func (a *Adapter) Connect(ctx context.Context) error {
	up, err := a.connect(ctx)
	if up {
		a.logger.Info("WhatsApp already connected")
		a.emit(transport.Opened{})
	}
	return err
}

func (a *Adapter) connect(ctx context.Context) (alreadyUp bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cli := a.client
	if cli.IsConnected() {
		return cli.IsLoggedIn(), nil
	}
	if cli.Store.ID == nil {
		a.stopPairingLocked()
		pairCtx, cancel := context.WithCancel(context.Background())
		qrCh, err := cli.GetQRChannel(pairCtx)
		if err != nil {
			cancel()
			return false, fmt.Errorf("get QR channel: %w", err)
		}
		a.pairCancel = cancel
		go a.forwardQR(qrCh)
	}

	a.logger.Info("connecting to WhatsApp", zap.Bool("paired", cli.Store.ID != nil))
	a.linkLost.Store(false)
	if err := cli.Connect(); err != nil {
		a.stopPairingLocked()
		return false, fmt.Errorf("connect: %w", err)
	}
	return false, nil
}

// Disconnect closes the websocket without touching credentials.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopPairingLocked()
	a.logger.Info("disconnecting from WhatsApp")
	a.client.Disconnect()
}

// WipeCredentials logs out when possible, deletes the stored device and
// replaces the client with a fresh unpaired one.
func (a *Adapter) WipeCredentials(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopPairingLocked()

	cli := a.client
	if cli.Store.ID != nil {
		logoutErr := errors.New("not connected")
		if cli.IsConnected() {
			logoutErr = cli.Logout(ctx)
		}
		if logoutErr != nil {
			a.logger.Info("logout skipped, deleting device locally", zap.Error(logoutErr))
			cli.Disconnect()
			if err := cli.Store.Delete(ctx); err != nil {
				return fmt.Errorf("delete device: %w", err)
			}
		}
	} else {
		cli.Disconnect()
	}
	cli.RemoveEventHandlers()

	a.client = a.newClient(a.container.NewDevice())
	a.logger.Info("credentials wiped")
	return nil
}

// Close stops event delivery and disconnects.
func (a *Adapter) Close() {
	a.Disconnect()
	a.once.Do(func() { close(a.done) })
}

func (a *Adapter) stopPairingLocked() {
	if a.pairCancel != nil {
		a.pairCancel()
		a.pairCancel = nil
	}
}

func (a *Adapter) forwardQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		if evt, ok := qrEvent(item); ok {
			a.emit(evt)
		}
	}
}

// emit blocks while the buffer is full so events are never reordered or
// lost; Close releases any blocked sender.
func (a *Adapter) emit(evt transport.Event) {
	select {
	case a.events <- evt:
	case <-a.done:
	}
}

// ResolveLID resolves a LID JID to its phone number JID using the device store mapping.
// Returns the original JID if it's not a LID or if resolution fails.
func (a *Adapter) ResolveLID(ctx context.Context, jid types.JID) types.JID {
	if jid.Server != types.HiddenUserServer && jid.Server != types.HostedLIDServer {
		return jid
	}
	cli := a.current()
	if cli.Store == nil || cli.Store.LIDs == nil {
		return jid
	}
	pn, err := cli.Store.LIDs.GetPNForLID(ctx, jid)
	if err != nil || pn.IsEmpty() {
		return jid
	}
	return pn
}

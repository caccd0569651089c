// Package transporttest provides an in-memory transport for tests.
package transporttest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/matheus3301/wppdesk/internal/transport"
)

// Sent records one successful or failed Send call.
type Sent struct {
	Peer    string
	Content transport.Content
	ID      string
	Err     error
}

// ReadCall records one MarkRead call.
type ReadCall struct {
	Peer string
	IDs  []string
}

// Fake implements transport.Transport. Media handles are strings keyed
// into the Media map.
type Fake struct {
	mu          sync.Mutex
	connected   bool
	creds       bool
	connectErr  error
	sendErr     error
	fetchErr    error
	avatar      string
	media       map[string][]byte
	sent        []Sent
	reads       []ReadCall
	connects    int
	disconnects int
	wipes       int
	nextID      int
	holds       map[string]*hold
	events      chan transport.Event
}

// Operations that Hold can block.
const (
	OpConnect = "connect"
	OpWipe    = "wipe"
	OpSend    = "send"
)

type hold struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

var _ transport.Transport = (*Fake)(nil)

// New returns a disconnected Fake holding credentials.
func New() *Fake {
	return &Fake{
		creds:  true,
		media:  make(map[string][]byte),
		holds:  make(map[string]*hold),
		events: make(chan transport.Event, 64),
	}
}

// Hold makes calls of op block until release is called. entered receives
// once per call that reaches the hold.
func (f *Fake) Hold(op string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}, 16), release: make(chan struct{})}
	f.mu.Lock()
	f.holds[op] = h
	f.mu.Unlock()
	return h.entered, func() { h.once.Do(func() { close(h.release) }) }
}

func (f *Fake) wait(ctx context.Context, op string) error {
	f.mu.Lock()
	h := f.holds[op]
	f.mu.Unlock()
	if h == nil {
		return nil
	}
	select {
	case h.entered <- struct{}{}:
	default:
	}
	select {
	case <-h.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fake) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	err := f.connectErr
	f.mu.Unlock()
	if werr := f.wait(ctx, OpConnect); werr != nil {
		return werr
	}
	return err
}

func (f *Fake) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
}

func (f *Fake) WipeCredentials(ctx context.Context) error {
	if err := f.wait(ctx, OpWipe); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wipes++
	f.creds = false
	f.connected = false
	return nil
}

func (f *Fake) HasCredentials() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds
}

func (f *Fake) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Send assigns ids SRV-1, SRV-2, ... unless a send error is configured.
func (f *Fake) Send(ctx context.Context, peer string, content transport.Content) (string, error) {
	if err := f.wait(ctx, OpSend); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		f.sent = append(f.sent, Sent{Peer: peer, Content: content, Err: transport.ErrNotConnected})
		return "", transport.ErrNotConnected
	}
	if f.sendErr != nil {
		f.sent = append(f.sent, Sent{Peer: peer, Content: content, Err: f.sendErr})
		return "", f.sendErr
	}
	f.nextID++
	id := fmt.Sprintf("SRV-%d", f.nextID)
	f.sent = append(f.sent, Sent{Peer: peer, Content: content, ID: id})
	return id, nil
}

func (f *Fake) FetchBinary(ctx context.Context, ref transport.MediaRef) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	key, _ := ref.Handle.(string)
	data, ok := f.media[key]
	if !ok {
		return nil, errors.New("no such media")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *Fake) MarkRead(ctx context.Context, peer string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return transport.ErrNotConnected
	}
	f.reads = append(f.reads, ReadCall{Peer: peer, IDs: append([]string(nil), ids...)})
	return nil
}

func (f *Fake) AvatarURL(ctx context.Context, peer string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.avatar, nil
}

func (f *Fake) Events() <-chan transport.Event { return f.events }

// Emit pushes evt onto the event stream.
func (f *Fake) Emit(evt transport.Event) { f.events <- evt }

func (f *Fake) SetConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *Fake) SetConnectErr(err error) {
	f.mu.Lock()
	f.connectErr = err
	f.mu.Unlock()
}

func (f *Fake) SetSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *Fake) SetFetchErr(err error) {
	f.mu.Lock()
	f.fetchErr = err
	f.mu.Unlock()
}

func (f *Fake) SetCredentials(v bool) {
	f.mu.Lock()
	f.creds = v
	f.mu.Unlock()
}

func (f *Fake) SetAvatar(url string) {
	f.mu.Lock()
	f.avatar = url
	f.mu.Unlock()
}

// PutMedia makes data downloadable under handle.
func (f *Fake) PutMedia(handle string, data []byte) {
	f.mu.Lock()
	f.media[handle] = data
	f.mu.Unlock()
}

func (f *Fake) SentMessages() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

func (f *Fake) ReadCalls() []ReadCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ReadCall(nil), f.reads...)
}

// Counts returns how often Connect, Disconnect and WipeCredentials ran.
func (f *Fake) Counts() (connects, disconnects, wipes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects, f.wipes
}

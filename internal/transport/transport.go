// Package transport defines the contract between the messaging-network
// client and the rest of the daemon.
package transport

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotConnected is returned by operations that need a live session.
var ErrNotConnected = errors.New("transport not connected")

// Transport owns the single connection to the messaging network.
type Transport interface {
	// Connect opens the session. Without credentials it starts pairing and
	// emits PairingCode events until the phone scans one.
	Connect(ctx context.Context) error
	Disconnect()
	// WipeCredentials logs out (best effort) and discards the stored device.
	WipeCredentials(ctx context.Context) error
	HasCredentials() bool
	IsConnected() bool

	Send(ctx context.Context, peer string, content Content) (string, error)
	FetchBinary(ctx context.Context, ref MediaRef) (io.ReadCloser, error)
	MarkRead(ctx context.Context, peer string, ids []string) error
	AvatarURL(ctx context.Context, peer string) (string, error)

	// Events is the single stream of session and message events. It is
	// never closed while the transport is alive.
	Events() <-chan Event
}

// ContentKind selects the outbound payload shape.
type ContentKind string

const (
	ContentText    ContentKind = "text"
	ContentSticker ContentKind = "sticker"
	ContentAudio   ContentKind = "audio"
)

// Content is an outbound payload. Data is already normalised for the kind.
type Content struct {
	Kind     ContentKind
	Text     string
	Data     []byte
	MimeType string
	Seconds  uint32
}

// MediaRef locates a downloadable inbound attachment. Handle is opaque to
// everything except the transport that produced it.
type MediaRef struct {
	Kind   ContentKind
	Handle any
}

// Inbound is a parsed message received from the network.
type Inbound struct {
	Peer      string
	ID        string
	FromMe    bool
	PushName  string
	Timestamp time.Time
	Kind      ContentKind
	Text      string
	Media     *MediaRef
}

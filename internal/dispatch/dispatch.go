// Package dispatch sends operator messages: it records them optimistically,
// hands them to the transport and reconciles the provisional identifier.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
	"github.com/matheus3301/wppdesk/internal/bus"
	"github.com/matheus3301/wppdesk/internal/codec"
	"github.com/matheus3301/wppdesk/internal/config"
	"github.com/matheus3301/wppdesk/internal/lanes"
	"github.com/matheus3301/wppdesk/internal/media"
	"github.com/matheus3301/wppdesk/internal/status"
	"github.com/matheus3301/wppdesk/internal/store"
	"github.com/matheus3301/wppdesk/internal/transport"
	"go.uber.org/zap"
)

// ProvisionalPrefix marks identifiers not yet confirmed by the network.
const ProvisionalPrefix = "temp-"

// OperatorLabel is the sender label broadcast for messages sent from the desk.
const OperatorLabel = "Você"

// TextRequest is a text message to send.
type TextRequest struct {
	Peer string `validate:"required,notblank"`
	Text string `validate:"required,notblank,max=65536"`
}

// MediaRequest is a voice note or sticker to send. MimeType may be empty,
// in which case the payload is sniffed.
type MediaRequest struct {
	Peer     string `validate:"required,notblank"`
	Kind     string `validate:"required,oneof=audio sticker"`
	Data     []byte `validate:"required,min=1"`
	MimeType string
}

var acceptedTypes = map[string][]string{
	"audio":   {"audio/webm", "audio/ogg", "audio/mpeg", "audio/mp4"},
	"sticker": {"image/webp", "image/png", "image/jpeg"},
}

// Pipeline is the outbound message path.
type Pipeline struct {
	db       *store.DB
	media    *media.Store
	tr       transport.Transport
	codec    codec.Normalizer
	bus      *bus.Bus
	lanes    *lanes.Lanes
	state    status.Reader
	limits   config.Limits
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{} // peer + "/" + id of messages being transmitted
}

// New creates a dispatch pipeline.
func New(db *store.DB, ms *media.Store, tr transport.Transport, nz codec.Normalizer, b *bus.Bus, ln *lanes.Lanes, state status.Reader, limits config.Limits, logger *zap.Logger) *Pipeline {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Pipeline{
		db:       db,
		media:    ms,
		tr:       tr,
		codec:    nz,
		bus:      b,
		lanes:    ln,
		state:    state,
		limits:   limits,
		validate: v,
		logger:   logger.Named("dispatch"),
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}

// SendText sends a text message and returns the reconciled record.
func (p *Pipeline) SendText(ctx context.Context, req TextRequest) (*store.Message, error) {
	if err := p.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := p.requireConnected(); err != nil {
		return nil, err
	}

	pending, err := p.appendPending(ctx, req.Peer, &store.Message{Kind: store.KindText, Body: req.Text}, nil)
	if err != nil {
		return nil, err
	}
	return p.transmit(ctx, pending, transport.Content{Kind: transport.ContentText, Text: req.Text}, "")
}

// SendMedia normalises and sends a voice note or sticker.
func (p *Pipeline) SendMedia(ctx context.Context, req MediaRequest) (*store.Message, error) {
	if err := p.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	mime := codec.BaseType(req.MimeType)
	if mime == "" {
		mime = codec.Sniff(req.Data)
	}
	if !accepted(req.Kind, mime) {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnsupportedMedia, mime, req.Kind)
	}
	if limit := p.sizeLimit(req.Kind); limit > 0 && int64(len(req.Data)) > limit {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(req.Data), limit)
	}
	if err := p.requireConnected(); err != nil {
		return nil, err
	}

	var (
		out     []byte
		err     error
		content transport.Content
		kind    media.Kind
		mkind   store.MessageKind
	)
	switch req.Kind {
	case "audio":
		out, err = p.codec.Audio(ctx, req.Data, mime)
		content = transport.Content{Kind: transport.ContentAudio, MimeType: codec.AudioMime}
		kind, mkind = media.Audio, store.KindAudio
	default:
		out, err = p.codec.Sticker(ctx, req.Data, mime)
		content = transport.Content{Kind: transport.ContentSticker, MimeType: codec.StickerMime}
		kind, mkind = media.Sticker, store.KindSticker
	}
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", req.Kind, err)
	}
	content.Data = out
	if content.Kind == transport.ContentAudio {
		content.Seconds = codec.OpusSeconds(out)
	}

	pending, err := p.appendPending(ctx, req.Peer, &store.Message{Kind: mkind}, func(id string) (string, error) {
		return p.media.Save(kind, id, out)
	})
	if err != nil {
		return nil, err
	}
	return p.transmit(ctx, pending, content, kind)
}

// Retry re-sends a provisional message that is still pending. A message
// whose transmission is already running is refused, so the network never
// receives the same pending message twice.
func (p *Pipeline) Retry(ctx context.Context, peer, id string) (*store.Message, error) {
	if err := p.requireConnected(); err != nil {
		return nil, err
	}
	var m *store.Message
	err := p.lanes.Do(ctx, peer, func() error {
		var err error
		m, err = p.db.GetMessage(peer, id)
		if err != nil {
			return err
		}
		if !m.FromMe || m.Status != store.StatusPending || !strings.HasPrefix(m.ID, ProvisionalPrefix) {
			return fmt.Errorf("%w: %s is %s", ErrNotRetryable, id, m.Status)
		}
		if !p.claim(peer, id) {
			return fmt.Errorf("%w: %s is already being sent", ErrNotRetryable, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	content, kind, err := p.retryContent(m)
	if err != nil {
		p.release(peer, id)
		return nil, err
	}
	return p.transmit(ctx, m, content, kind)
}

func (p *Pipeline) retryContent(m *store.Message) (transport.Content, media.Kind, error) {
	switch m.Kind {
	case store.KindText:
		return transport.Content{Kind: transport.ContentText, Text: m.Body}, "", nil
	case store.KindAudio, store.KindSticker:
		data, err := p.readMedia(m.MediaRef)
		if err != nil {
			return transport.Content{}, "", fmt.Errorf("%w: media missing: %v", ErrNotRetryable, err)
		}
		if m.Kind == store.KindAudio {
			return transport.Content{Kind: transport.ContentAudio, Data: data, MimeType: codec.AudioMime, Seconds: codec.OpusSeconds(data)}, media.Audio, nil
		}
		return transport.Content{Kind: transport.ContentSticker, Data: data, MimeType: codec.StickerMime}, media.Sticker, nil
	}
	return transport.Content{}, "", fmt.Errorf("%w: kind %s", ErrNotRetryable, m.Kind)
}

func (p *Pipeline) claim(peer, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := peer + "/" + id
	if _, busy := p.inFlight[key]; busy {
		return false
	}
	p.inFlight[key] = struct{}{}
	return true
}

func (p *Pipeline) release(peer, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, peer+"/"+id)
}

// MarkRead marks the peer's inbound messages read, announces it and sends
// read receipts when the session is up. It returns how many changed.
func (p *Pipeline) MarkRead(ctx context.Context, peer string) (int, error) {
	var ids []string
	err := p.lanes.Do(ctx, peer, func() error {
		var err error
		ids, err = p.db.MarkRead(peer)
		if err != nil {
			return err
		}
		p.bus.Emit(bus.KindConversationRead, bus.ConversationRead{PeerID: peer})
		p.bus.Emit(bus.KindUnreadUpdate, bus.UnreadUpdate{PeerID: peer, Count: 0})
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 && p.state.Current() == status.Connected {
		if err := p.tr.MarkRead(ctx, peer, ids); err != nil {
			p.logger.Warn("read receipts not sent", zap.String("peer", peer), zap.Error(err))
		}
	}
	return len(ids), nil
}

// RefreshAvatar asks the network for the peer's current picture and stores
// it on the conversation. An empty answer keeps the stored URL.
func (p *Pipeline) RefreshAvatar(ctx context.Context, peer string) (*store.Conversation, error) {
	if err := p.requireConnected(); err != nil {
		return nil, err
	}
	conv, err := p.db.GetConversation(peer)
	if err != nil {
		return nil, err
	}
	url, err := p.tr.AvatarURL(ctx, peer)
	if err != nil {
		if errors.Is(err, transport.ErrNotConnected) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("fetch avatar: %w", err)
	}
	if url == "" || url == conv.AvatarURL {
		return conv, nil
	}
	if err := p.db.SetAvatar(peer, url); err != nil {
		return nil, err
	}
	conv.AvatarURL = url
	p.bus.Emit(bus.KindConversationUpdated, bus.ConversationUpdated{PeerID: peer})
	return conv, nil
}

func (p *Pipeline) requireConnected() error {
	if p.state.Current() != status.Connected {
		return ErrNotConnected
	}
	return nil
}

// appendPending records m as a pending outbound message under a fresh
// provisional id and announces it. save, when set, stores the media file
// first so the announced record already points at it.
func (p *Pipeline) appendPending(ctx context.Context, peer string, m *store.Message, save func(id string) (string, error)) (*store.Message, error) {
	m.ConversationJID = peer
	m.ID = p.provisionalID()
	m.FromMe = true
	m.Status = store.StatusPending
	m.Timestamp = p.now().UnixMilli()
	p.claim(peer, m.ID)

	err := p.lanes.Do(ctx, peer, func() error {
		if _, _, err := p.db.EnsureConversation(peer, p.nameFor(peer), store.PeerDirect); err != nil {
			return fmt.Errorf("ensure conversation: %w", err)
		}
		if save != nil {
			ref, err := save(m.ID)
			if err != nil {
				return fmt.Errorf("save media: %w", err)
			}
			m.MediaRef = ref
		}
		if _, err := p.db.AppendMessage(m); err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		p.bus.Emit(bus.KindMessageNew, bus.NewMessage(m, OperatorLabel))
		return nil
	})
	if err != nil {
		p.release(peer, m.ID)
		return nil, err
	}
	return m, nil
}

// transmit sends content for the pending record, which the caller has
// claimed, and reconciles it. On failure the record stays pending and the
// error is returned. The claim is released either way.
func (p *Pipeline) transmit(ctx context.Context, pending *store.Message, content transport.Content, kind media.Kind) (*store.Message, error) {
	defer p.release(pending.ConversationJID, pending.ID)
	finalID, err := p.tr.Send(ctx, pending.ConversationJID, content)
	if err != nil {
		p.logger.Warn("send failed, message left pending",
			zap.String("peer", pending.ConversationJID), zap.String("id", pending.ID), zap.Error(err))
		if errors.Is(err, transport.ErrNotConnected) {
			return pending, ErrNotConnected
		}
		return pending, fmt.Errorf("send: %w", err)
	}

	var final *store.Message
	peer := pending.ConversationJID
	err = p.lanes.Do(context.WithoutCancel(ctx), peer, func() error {
		var err error
		final, err = p.db.Reconcile(peer, pending.ID, finalID)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		if kind != "" && pending.MediaRef != "" {
			ref, err := p.media.Rename(kind, pending.ID, finalID)
			if err != nil {
				p.logger.Warn("media rename failed", zap.String("id", finalID), zap.Error(err))
			} else if err := p.db.SetMediaRef(peer, finalID, ref); err != nil {
				return fmt.Errorf("set media ref: %w", err)
			} else {
				final.MediaRef = ref
			}
		}
		p.bus.Emit(bus.KindMessageStatus, bus.MessageStatus{
			PeerID:     peer,
			ID:         final.ID,
			Status:     final.Status.String(),
			ReplacesID: pending.ID,
			Ref:        final.MediaRef,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return final, nil
}

func (p *Pipeline) nameFor(peer string) string {
	if c, err := p.db.GetContact(peer); err == nil && c.Name != "" {
		return c.Name
	}
	return store.DefaultConversationName
}

func (p *Pipeline) provisionalID() string {
	return fmt.Sprintf("%s%d-%s", ProvisionalPrefix, p.now().UnixMilli(), uuid.NewString()[:8])
}

func (p *Pipeline) sizeLimit(kind string) int64 {
	if kind == "audio" {
		return p.limits.MaxAudioBytes
	}
	return p.limits.MaxStickerBytes
}

func (p *Pipeline) readMedia(ref string) ([]byte, error) {
	rc, err := p.media.Open(ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func accepted(kind, mime string) bool {
	for _, t := range acceptedTypes[kind] {
		if t == mime {
			return true
		}
	}
	return false
}

// Package ingest persists inbound messages and delivery receipts and
// announces them on the bus.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matheus3301/wppdesk/internal/bus"
	"github.com/matheus3301/wppdesk/internal/config"
	"github.com/matheus3301/wppdesk/internal/lanes"
	"github.com/matheus3301/wppdesk/internal/media"
	"github.com/matheus3301/wppdesk/internal/store"
	"github.com/matheus3301/wppdesk/internal/transport"
	"go.uber.org/zap"
)

// Placeholder bodies stored when a media download fails.
const (
	StickerPlaceholder = "[figurinha]"
	AudioPlaceholder   = "[áudio]"
)

const avatarTimeout = 15 * time.Second

var errTooLarge = errors.New("media exceeds size limit")

// Pipeline turns transport events into stored messages.
type Pipeline struct {
	db     *store.DB
	media  *media.Store
	tr     transport.Transport
	bus    *bus.Bus
	lanes  *lanes.Lanes
	limits config.Limits
	logger *zap.Logger
}

// New creates an ingestion pipeline.
func New(db *store.DB, ms *media.Store, tr transport.Transport, b *bus.Bus, ln *lanes.Lanes, limits config.Limits, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		db:     db,
		media:  ms,
		tr:     tr,
		bus:    b,
		lanes:  ln,
		limits: limits,
		logger: logger.Named("ingest"),
	}
}

// InScope reports whether messages from peer belong on the desk. Groups,
// status updates, broadcast lists and channels are ignored.
func InScope(peer string) bool {
	switch {
	case peer == "":
		return false
	case strings.HasSuffix(peer, "@g.us"),
		strings.HasSuffix(peer, "@broadcast"),
		strings.HasSuffix(peer, "@newsletter"):
		return false
	}
	return true
}

// Accept queues in on its peer's lane.
func (p *Pipeline) Accept(in transport.Inbound) {
	if !InScope(in.Peer) {
		p.logger.Debug("out of scope message dropped", zap.String("peer", in.Peer))
		return
	}
	if in.Media == nil && strings.TrimSpace(in.Text) == "" {
		p.logger.Debug("empty message dropped", zap.String("peer", in.Peer), zap.String("id", in.ID))
		return
	}
	err := p.lanes.Go(in.Peer, func() {
		if err := p.Ingest(context.Background(), in); err != nil {
			p.logger.Error("ingest failed", zap.String("peer", in.Peer), zap.String("id", in.ID), zap.Error(err))
		}
	})
	if err != nil {
		p.logger.Warn("message not queued", zap.String("id", in.ID), zap.Error(err))
	}
}

// AcceptStatus queues a receipt on its peer's lane.
func (p *Pipeline) AcceptStatus(sc transport.StatusChanged) {
	err := p.lanes.Go(sc.Peer, func() {
		if err := p.ApplyStatus(sc); err != nil {
			p.logger.Error("status update failed", zap.String("peer", sc.Peer), zap.Error(err))
		}
	})
	if err != nil {
		p.logger.Warn("status not queued", zap.Error(err))
	}
}

// Ingest stores one inbound message. Callers run it on the peer's lane.
func (p *Pipeline) Ingest(ctx context.Context, in transport.Inbound) error {
	name := store.DefaultConversationName
	if !in.FromMe && strings.TrimSpace(in.PushName) != "" {
		name = in.PushName
	}
	conv, created, err := p.db.EnsureConversation(in.Peer, name, store.PeerDirect)
	if err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}
	if created {
		p.refreshAvatar(in.Peer)
	}

	dup, err := p.db.HasMessage(in.Peer, in.ID)
	if err != nil {
		return fmt.Errorf("check duplicate: %w", err)
	}
	if dup {
		p.logger.Debug("duplicate message skipped", zap.String("id", in.ID))
		return nil
	}

	msg := &store.Message{
		ConversationJID: in.Peer,
		ID:              in.ID,
		Kind:            store.KindText,
		Body:            in.Text,
		FromMe:          in.FromMe,
		Status:          store.StatusDelivered,
		Timestamp:       in.Timestamp.UnixMilli(),
	}
	if in.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UnixMilli()
	}
	label := ""
	if in.FromMe {
		msg.Status = store.StatusSent
	} else {
		label = conv.Name
		if in.PushName != "" {
			label = in.PushName
		}
		msg.SenderName = label
	}

	if in.Media != nil {
		p.attachMedia(ctx, in, msg)
	}

	inserted, err := p.db.AppendMessage(msg)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if !inserted {
		return nil
	}
	p.bus.Emit(bus.KindMessageNew, bus.NewMessage(msg, label))

	if !in.FromMe {
		count, err := p.db.UnreadCount(in.Peer)
		if err != nil {
			return fmt.Errorf("unread count: %w", err)
		}
		p.bus.Emit(bus.KindUnreadUpdate, bus.UnreadUpdate{PeerID: in.Peer, Count: count})
	}
	return nil
}

// attachMedia downloads the attachment into the media store. On failure
// the message degrades to a text placeholder.
func (p *Pipeline) attachMedia(ctx context.Context, in transport.Inbound, msg *store.Message) {
	kind, mkind, placeholder := media.Sticker, store.KindSticker, StickerPlaceholder
	if in.Media.Kind == transport.ContentAudio {
		kind, mkind, placeholder = media.Audio, store.KindAudio, AudioPlaceholder
	}

	ref, err := p.fetch(ctx, *in.Media, kind, in.ID)
	if err != nil {
		p.logger.Warn("media download failed, storing placeholder",
			zap.String("id", in.ID), zap.String("kind", string(kind)), zap.Error(err))
		msg.Kind = store.KindText
		msg.Body = placeholder
		return
	}
	msg.Kind = mkind
	msg.MediaRef = ref
	msg.Body = ""
}

func (p *Pipeline) fetch(ctx context.Context, ref transport.MediaRef, kind media.Kind, id string) (string, error) {
	if d := p.limits.FetchTimeout.Duration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	rc, err := p.tr.FetchBinary(ctx, ref)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	limit := p.limits.MaxInboundMediaBytes
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}
	if int64(len(data)) > limit {
		return "", errTooLarge
	}
	if len(data) == 0 {
		return "", errors.New("empty media")
	}
	return p.media.Save(kind, id, data)
}

// refreshAvatar looks up the peer's picture on a side lane so the
// conversation lane is not held up by the network.
func (p *Pipeline) refreshAvatar(peer string) {
	_ = p.lanes.Go("avatar:"+peer, func() {
		ctx, cancel := context.WithTimeout(context.Background(), avatarTimeout)
		defer cancel()
		url, err := p.tr.AvatarURL(ctx, peer)
		if err != nil || url == "" {
			p.logger.Debug("no avatar", zap.String("peer", peer), zap.Error(err))
			return
		}
		if err := p.db.SetAvatar(peer, url); err != nil {
			p.logger.Warn("store avatar failed", zap.String("peer", peer), zap.Error(err))
			return
		}
		p.bus.Emit(bus.KindConversationUpdated, bus.ConversationUpdated{PeerID: peer})
	})
}

// ApplyStatus moves the listed messages forward to the receipt's status.
// Unknown identifiers are ignored.
func (p *Pipeline) ApplyStatus(sc transport.StatusChanged) error {
	st, ok := store.StatusFromCode(sc.Code)
	if !ok {
		p.logger.Debug("unknown status code", zap.Int("code", sc.Code))
		return nil
	}
	for _, id := range sc.IDs {
		jid, changed, err := p.db.UpdateStatus(id, st)
		if err != nil {
			return fmt.Errorf("update status %s: %w", id, err)
		}
		if !changed {
			continue
		}
		p.bus.Emit(bus.KindMessageStatus, bus.MessageStatus{PeerID: jid, ID: id, Status: st.String()})
	}
	return nil
}

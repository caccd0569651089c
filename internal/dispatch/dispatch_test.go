package dispatch

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/wppdesk/internal/bus"
	"github.com/matheus3301/wppdesk/internal/config"
	"github.com/matheus3301/wppdesk/internal/lanes"
	"github.com/matheus3301/wppdesk/internal/media"
	"github.com/matheus3301/wppdesk/internal/status"
	"github.com/matheus3301/wppdesk/internal/store"
	"github.com/matheus3301/wppdesk/internal/transport"
	"github.com/matheus3301/wppdesk/internal/transport/transporttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const peer = "5585999990000@s.whatsapp.net"

type fakeCodec struct {
	err      error
	calls    []string
	audioOut []byte
}

func (c *fakeCodec) Audio(ctx context.Context, in []byte, mime string) ([]byte, error) {
	c.calls = append(c.calls, "audio:"+mime)
	if c.err != nil {
		return nil, c.err
	}
	if c.audioOut != nil {
		return c.audioOut, nil
	}
	return append([]byte("OggS"), in...), nil
}

func (c *fakeCodec) Sticker(ctx context.Context, in []byte, mime string) ([]byte, error) {
	c.calls = append(c.calls, "sticker:"+mime)
	if c.err != nil {
		return nil, c.err
	}
	return []byte("RIFF0000WEBPVP8 "), nil
}

type fixture struct {
	p       *Pipeline
	db      *store.DB
	media   *media.Store
	tr      *transporttest.Fake
	codec   *fakeCodec
	bus     *bus.Bus
	machine *status.Machine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "desk.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ms, err := media.New(filepath.Join(dir, "media"))
	require.NoError(t, err)

	b := bus.New()
	m := status.NewMachine(b)
	require.NoError(t, m.Transition(status.Connecting))
	require.NoError(t, m.Transition(status.Connected))

	tr := transporttest.New()
	tr.SetConnected(true)
	ln := lanes.New(8, zap.NewNop())
	t.Cleanup(ln.Close)
	nz := &fakeCodec{}

	p := New(db, ms, tr, nz, b, ln, m, config.Default().Limits, zap.NewNop())
	return &fixture{p: p, db: db, media: ms, tr: tr, codec: nz, bus: b, machine: m}
}

func drain(ch <-chan bus.Event) []bus.Event {
	var out []bus.Event
	for {
		select {
		case evt := <-ch:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestSendTextReconciles(t *testing.T) {
	f := newFixture(t)
	ch, unsub := f.bus.Subscribe("message.", 8)
	defer unsub()

	msg, err := f.p.SendText(context.Background(), TextRequest{Peer: peer, Text: "olá"})
	require.NoError(t, err)
	assert.Equal(t, "SRV-1", msg.ID)
	assert.Equal(t, store.StatusSent, msg.Status)
	assert.True(t, msg.FromMe)

	msgs, err := f.db.ListMessages(peer, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1, "provisional record must be replaced, not duplicated")
	assert.Equal(t, "SRV-1", msgs[0].ID)

	events := drain(ch)
	require.Len(t, events, 2)
	created := events[0].Payload.(bus.MessageNew)
	assert.True(t, strings.HasPrefix(created.ID, ProvisionalPrefix))
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, OperatorLabel, created.SenderLabel)

	st := events[1].Payload.(bus.MessageStatus)
	assert.Equal(t, "SRV-1", st.ID)
	assert.Equal(t, created.ID, st.ReplacesID)
	assert.Equal(t, "sent", st.Status)

	sent := f.tr.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, transport.ContentText, sent[0].Content.Kind)
	assert.Equal(t, "olá", sent[0].Content.Text)
}

func TestSendTextValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		req  TextRequest
		want error
	}{
		{"empty text", TextRequest{Peer: peer, Text: ""}, ErrEmptyContent},
		{"blank text", TextRequest{Peer: peer, Text: "  \n "}, ErrEmptyContent},
		{"empty peer", TextRequest{Peer: "", Text: "oi"}, ErrInvalidPeer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.p.SendText(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
	n, err := f.db.MessageCount()
	require.NoError(t, err)
	assert.Zero(t, n, "validation failures must not write")
}

func TestSendRejectedWhenDisconnected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.machine.Transition(status.Disconnected))

	_, err := f.p.SendText(context.Background(), TextRequest{Peer: peer, Text: "oi"})
	require.ErrorIs(t, err, ErrNotConnected)
	_, err = f.p.SendMedia(context.Background(), MediaRequest{Peer: peer, Kind: "sticker", Data: []byte("\x89PNG\r\n\x1a\n"), MimeType: "image/png"})
	require.ErrorIs(t, err, ErrNotConnected)

	n, err := f.db.ConversationCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSendFailureKeepsPending(t *testing.T) {
	f := newFixture(t)
	f.tr.SetSendErr(errors.New("socket closed"))

	pending, err := f.p.SendText(context.Background(), TextRequest{Peer: peer, Text: "oi"})
	require.Error(t, err)
	require.NotNil(t, pending)

	m, err := f.db.GetMessage(peer, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, m.Status)
	assert.True(t, strings.HasPrefix(m.ID, ProvisionalPrefix))
}

func TestRetryResendsPending(t *testing.T) {
	f := newFixture(t)
	f.tr.SetSendErr(errors.New("socket closed"))
	pending, err := f.p.SendText(context.Background(), TextRequest{Peer: peer, Text: "de novo"})
	require.Error(t, err)

	f.tr.SetSendErr(nil)
	final, err := f.p.Retry(context.Background(), peer, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "SRV-1", final.ID)
	assert.Equal(t, "de novo", final.Body)

	_, err = f.p.Retry(context.Background(), peer, final.ID)
	assert.ErrorIs(t, err, ErrNotRetryable)
}

func TestRetryUnknownMessage(t *testing.T) {
	f := newFixture(t)
	_, err := f.p.Retry(context.Background(), peer, "temp-1-abc")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSendStickerStoresUnderFinalID(t *testing.T) {
	f := newFixture(t)

	msg, err := f.p.SendMedia(context.Background(), MediaRequest{
		Peer: peer, Kind: "sticker", Data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), MimeType: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, store.KindSticker, msg.Kind)
	assert.Equal(t, "/stickers/SRV-1.webp", msg.MediaRef)
	assert.Equal(t, []string{"sticker:image/png"}, f.codec.calls)

	stored, err := f.db.GetMessage(peer, "SRV-1")
	require.NoError(t, err)
	assert.Equal(t, msg.MediaRef, stored.MediaRef)

	rc, err := f.media.Open(msg.MediaRef)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.True(t, strings.HasPrefix(string(data), "RIFF"))

	sent := f.tr.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "image/webp", sent[0].Content.MimeType)
}

func TestSendAudioFailureKeepsFileUnderProvisionalID(t *testing.T) {
	f := newFixture(t)
	f.tr.SetSendErr(errors.New("upload failed"))

	pending, err := f.p.SendMedia(context.Background(), MediaRequest{
		Peer: peer, Kind: "audio", Data: []byte("OggS\x00\x02"), MimeType: "audio/ogg; codecs=opus",
	})
	require.Error(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, media.RefFor(media.Audio, pending.ID), pending.MediaRef)

	path, err := f.media.Path(pending.MediaRef)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, []string{"audio:audio/ogg"}, f.codec.calls)
}

func TestSendMediaSniffsMissingType(t *testing.T) {
	f := newFixture(t)
	_, err := f.p.SendMedia(context.Background(), MediaRequest{Peer: peer, Kind: "audio", Data: []byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00")})
	require.NoError(t, err)
	assert.Equal(t, []string{"audio:audio/ogg"}, f.codec.calls)
}

func TestSendMediaRejections(t *testing.T) {
	f := newFixture(t)
	f.p.limits.MaxStickerBytes = 4

	tests := []struct {
		name string
		req  MediaRequest
		want error
	}{
		{"bad kind", MediaRequest{Peer: peer, Kind: "video", Data: []byte{1}}, ErrUnsupportedMedia},
		{"no data", MediaRequest{Peer: peer, Kind: "audio"}, ErrEmptyContent},
		{"gif sticker", MediaRequest{Peer: peer, Kind: "sticker", Data: []byte("GIF8"), MimeType: "image/gif"}, ErrUnsupportedMedia},
		{"too large", MediaRequest{Peer: peer, Kind: "sticker", Data: []byte("12345"), MimeType: "image/png"}, ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.p.SendMedia(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.codec.calls)
}

func TestSendMediaCodecFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.codec.err = errors.New("ffmpeg exploded")
	_, err := f.p.SendMedia(context.Background(), MediaRequest{Peer: peer, Kind: "audio", Data: []byte("x"), MimeType: "audio/webm"})
	require.Error(t, err)

	n, err := f.db.MessageCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSendUsesContactName(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.AddContact(&store.Contact{JID: peer, Name: "Dona Ana", Number: "5585999990000"}))

	_, err := f.p.SendText(context.Background(), TextRequest{Peer: peer, Text: "oi"})
	require.NoError(t, err)
	conv, err := f.db.GetConversation(peer)
	require.NoError(t, err)
	assert.Equal(t, "Dona Ana", conv.Name)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.db.EnsureConversation(peer, "Maria", store.PeerDirect)
	require.NoError(t, err)
	for _, id := range []string{"IN1", "IN2"} {
		_, err := f.db.AppendMessage(&store.Message{ConversationJID: peer, ID: id, Kind: store.KindText, Body: "x", Status: store.StatusDelivered, Timestamp: 1})
		require.NoError(t, err)
	}

	ch, unsub := f.bus.Subscribe("", 8)
	defer unsub()

	n, err := f.p.MarkRead(context.Background(), peer)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	events := drain(ch)
	require.Len(t, events, 2)
	assert.Equal(t, bus.KindConversationRead, events[0].Kind)
	assert.Equal(t, bus.UnreadUpdate{PeerID: peer, Count: 0}, events[1].Payload)

	reads := f.tr.ReadCalls()
	require.Len(t, reads, 1)
	assert.ElementsMatch(t, []string{"IN1", "IN2"}, reads[0].IDs)

	unread, err := f.db.UnreadCount(peer)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestMarkReadOfflineSkipsReceipts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.machine.Transition(status.Disconnected))
	_, _, err := f.db.EnsureConversation(peer, "Maria", store.PeerDirect)
	require.NoError(t, err)
	_, err = f.db.AppendMessage(&store.Message{ConversationJID: peer, ID: "IN1", Kind: store.KindText, Body: "x", Status: store.StatusDelivered, Timestamp: 1})
	require.NoError(t, err)

	n, err := f.p.MarkRead(context.Background(), peer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.tr.ReadCalls())
}

func TestPendingVisibleWhileSending(t *testing.T) {
	f := newFixture(t)
	entered, release := f.tr.Hold(transporttest.OpSend)
	defer release()

	type result struct {
		msg *store.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := f.p.SendText(context.Background(), TextRequest{Peer: peer, Text: "aguarde"})
		done <- result{msg, err}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("send never reached the transport")
	}

	msgs, err := f.db.ListMessages(peer, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, store.StatusPending, msgs[0].Status)
	assert.Equal(t, "aguarde", msgs[0].Body)
	assert.True(t, strings.HasPrefix(msgs[0].ID, ProvisionalPrefix))

	release()
	var r result
	select {
	case r = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send did not finish")
	}
	require.NoError(t, r.err)

	msgs, err = f.db.ListMessages(peer, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "SRV-1", msgs[0].ID)
	assert.Equal(t, store.StatusSent, msgs[0].Status)
}

func TestConcurrentRetrySendsOnce(t *testing.T) {
	f := newFixture(t)
	f.tr.SetSendErr(errors.New("socket closed"))
	pending, err := f.p.SendText(context.Background(), TextRequest{Peer: peer, Text: "uma vez"})
	require.Error(t, err)
	f.tr.SetSendErr(nil)

	entered, release := f.tr.Hold(transporttest.OpSend)
	defer release()

	var wg sync.WaitGroup
	var first error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, first = f.p.Retry(context.Background(), peer, pending.ID)
	}()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("retry never reached the transport")
	}

	_, second := f.p.Retry(context.Background(), peer, pending.ID)
	assert.ErrorIs(t, second, ErrNotRetryable)

	release()
	wg.Wait()
	require.NoError(t, first)

	var delivered int
	for _, s := range f.tr.SentMessages() {
		if s.Err == nil {
			delivered++
		}
	}
	assert.Equal(t, 1, delivered, "the pending message reached the network more than once")

	msgs, err := f.db.ListMessages(peer, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "SRV-1", msgs[0].ID)
}

func TestRetryRefusedWhileFirstSendRuns(t *testing.T) {
	f := newFixture(t)
	entered, release := f.tr.Hold(transporttest.OpSend)
	defer release()

	ch, unsub := f.bus.Subscribe(bus.KindMessageNew, 1)
	defer unsub()

	done := make(chan error, 1)
	go func() {
		_, err := f.p.SendText(context.Background(), TextRequest{Peer: peer, Text: "primeira"})
		done <- err
	}()
	var id string
	select {
	case evt := <-ch:
		id = evt.Payload.(bus.MessageNew).ID
	case <-time.After(2 * time.Second):
		t.Fatal("no pending message announced")
	}
	<-entered

	_, err := f.p.Retry(context.Background(), peer, id)
	assert.ErrorIs(t, err, ErrNotRetryable)

	release()
	require.NoError(t, <-done)
	assert.Len(t, f.tr.SentMessages(), 1)
}

func TestSendAudioCarriesDuration(t *testing.T) {
	f := newFixture(t)
	head := make([]byte, 27)
	copy(head, "OggS")
	head = append(head, "OpusHead\x01\x01\x00\x00\x80\xbb\x00\x00\x00\x00\x00"...)
	last := make([]byte, 27)
	copy(last, "OggS")
	binary.LittleEndian.PutUint64(last[6:14], 48000*4+1)
	f.codec.audioOut = append(head, last...)

	_, err := f.p.SendMedia(context.Background(), MediaRequest{Peer: peer, Kind: "audio", Data: []byte("webm"), MimeType: "audio/webm"})
	require.NoError(t, err)

	sent := f.tr.SentMessages()
	require.Len(t, sent, 1)
	assert.EqualValues(t, 5, sent[0].Content.Seconds)
}

func TestRefreshAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.db.EnsureConversation(peer, "Maria", store.PeerDirect)
	require.NoError(t, err)
	ch, unsub := f.bus.Subscribe("conversation.updated", 4)
	defer unsub()

	f.tr.SetAvatar("https://pps.whatsapp.net/v/maria.jpg")
	conv, err := f.p.RefreshAvatar(ctx, peer)
	require.NoError(t, err)
	assert.Equal(t, "https://pps.whatsapp.net/v/maria.jpg", conv.AvatarURL)
	stored, err := f.db.GetConversation(peer)
	require.NoError(t, err)
	assert.Equal(t, "https://pps.whatsapp.net/v/maria.jpg", stored.AvatarURL)
	require.Len(t, drain(ch), 1)

	// Same picture, nothing to announce.
	_, err = f.p.RefreshAvatar(ctx, peer)
	require.NoError(t, err)
	assert.Empty(t, drain(ch))

	// No picture on the network keeps the last known one.
	f.tr.SetAvatar("")
	conv, err = f.p.RefreshAvatar(ctx, peer)
	require.NoError(t, err)
	assert.Equal(t, "https://pps.whatsapp.net/v/maria.jpg", conv.AvatarURL)

	_, err = f.p.RefreshAvatar(ctx, "5511000000000@s.whatsapp.net")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, f.machine.Transition(status.Disconnected))
	_, err = f.p.RefreshAvatar(ctx, peer)
	assert.ErrorIs(t, err, ErrNotConnected)
}

package wa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/wppdesk/internal/transport"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// Send delivers content to peer and returns the network message ID.
func (a *Adapter) Send(ctx context.Context, peer string, content transport.Content) (string, error) {
	cli := a.current()
	if !cli.IsConnected() || !cli.IsLoggedIn() {
		return "", transport.ErrNotConnected
	}
	to, err := types.ParseJID(peer)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}

	msg, err := buildMessage(ctx, cli, content)
	if err != nil {
		return "", err
	}
	resp, err := cli.SendMessage(ctx, to, msg)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.ID, nil
}

func buildMessage(ctx context.Context, cli *whatsmeow.Client, content transport.Content) (*waE2E.Message, error) {
	switch content.Kind {
	case transport.ContentText:
		return &waE2E.Message{Conversation: proto.String(content.Text)}, nil
	case transport.ContentAudio:
		up, err := cli.Upload(ctx, content.Data, whatsmeow.MediaAudio)
		if err != nil {
			return nil, fmt.Errorf("upload audio: %w", err)
		}
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(content.MimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
			Seconds:       proto.Uint32(content.Seconds),
			PTT:           proto.Bool(true),
		}}, nil
	case transport.ContentSticker:
		up, err := cli.Upload(ctx, content.Data, whatsmeow.MediaImage)
		if err != nil {
			return nil, fmt.Errorf("upload sticker: %w", err)
		}
		return &waE2E.Message{StickerMessage: &waE2E.StickerMessage{
			URL:               proto.String(up.URL),
			DirectPath:        proto.String(up.DirectPath),
			MediaKey:          up.MediaKey,
			Mimetype:          proto.String(content.MimeType),
			FileEncSHA256:     up.FileEncSHA256,
			FileSHA256:        up.FileSHA256,
			FileLength:        proto.Uint64(up.FileLength),
			Width:             proto.Uint32(512),
			Height:            proto.Uint32(512),
			MediaKeyTimestamp: proto.Int64(time.Now().Unix()),
		}}, nil
	}
	return nil, fmt.Errorf("unsupported content kind %q", content.Kind)
}

// FetchBinary downloads and decrypts an inbound attachment.
func (a *Adapter) FetchBinary(ctx context.Context, ref transport.MediaRef) (io.ReadCloser, error) {
	dm, ok := ref.Handle.(whatsmeow.DownloadableMessage)
	if !ok || dm == nil {
		return nil, errors.New("media reference is not downloadable")
	}
	data, err := a.current().Download(ctx, dm)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// MarkRead sends read receipts for ids in the direct chat with peer.
func (a *Adapter) MarkRead(ctx context.Context, peer string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	cli := a.current()
	if !cli.IsConnected() {
		return transport.ErrNotConnected
	}
	chat, err := types.ParseJID(peer)
	if err != nil {
		return fmt.Errorf("parse JID: %w", err)
	}
	return cli.MarkRead(ctx, ids, time.Now(), chat, chat)
}

// AvatarURL returns the peer's profile picture URL, or "" when there is none.
func (a *Adapter) AvatarURL(ctx context.Context, peer string) (string, error) {
	cli := a.current()
	if !cli.IsConnected() {
		return "", transport.ErrNotConnected
	}
	jid, err := types.ParseJID(peer)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}
	info, err := cli.GetProfilePictureInfo(ctx, jid, &whatsmeow.GetProfilePictureParams{Preview: true})
	if errors.Is(err, whatsmeow.ErrProfilePictureNotSet) || errors.Is(err, whatsmeow.ErrProfilePictureUnauthorized) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", nil
	}
	return info.URL, nil
}

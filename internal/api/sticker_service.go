package api

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/matheus3301/wppdesk/internal/codec"
	"github.com/matheus3301/wppdesk/internal/media"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

var stickerInputs = map[string]bool{
	"image/webp": true,
	"image/png":  true,
	"image/jpeg": true,
}

// StickerService implements rpc.StickerServer on top of the favourites
// kept in the media store.
type StickerService struct {
	media    *media.Store
	codec    codec.Normalizer
	maxBytes int64
	logger   *zap.Logger
}

var _ rpc.StickerServer = (*StickerService)(nil)

// NewStickerService creates a new sticker service.
func NewStickerService(ms *media.Store, nz codec.Normalizer, maxBytes int64, logger *zap.Logger) *StickerService {
	return &StickerService{media: ms, codec: nz, maxBytes: maxBytes, logger: logger.Named("api")}
}

func (s *StickerService) Save(ctx context.Context, req *rpc.SaveStickerRequest) (*rpc.Sticker, error) {
	var data []byte
	switch {
	case req.FromRef != "":
		b, err := s.readRef(req.FromRef)
		if err != nil {
			return nil, err
		}
		data = b
	case len(req.Data) > 0:
		if s.maxBytes > 0 && int64(len(req.Data)) > s.maxBytes {
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "save sticker: larger than %d bytes", s.maxBytes)
		}
		mime := codec.BaseType(req.MimeType)
		if mime == "" {
			mime = codec.Sniff(req.Data)
		}
		if !stickerInputs[mime] {
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "save sticker: unsupported type %q", mime)
		}
		out, err := s.codec.Sticker(ctx, req.Data, mime)
		if err != nil {
			return nil, grpcstatus.Errorf(codes.Internal, "save sticker: convert: %v", err)
		}
		data = out
	default:
		return nil, grpcstatus.Error(codes.InvalidArgument, "save sticker: data or from_ref is required")
	}

	ref, err := s.media.SaveFavorite(data)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "save sticker: %v", err)
	}
	s.logger.Info("sticker saved", zap.String("ref", ref))
	return &rpc.Sticker{Ref: ref, Name: path.Base(ref), SavedAtMs: time.Now().UnixMilli()}, nil
}

func (s *StickerService) readRef(ref string) ([]byte, error) {
	rc, err := s.media.Open(ref)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.NotFound, "save sticker: %s: %v", ref, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "save sticker: read %s: %v", ref, err)
	}
	if !codec.IsWebP(b) {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "save sticker: %s is not a sticker", ref)
	}
	return b, nil
}

func (s *StickerService) List(_ context.Context, _ *rpc.Empty) (*rpc.StickerList, error) {
	favs, err := s.media.ListFavorites()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list stickers: %v", err)
	}
	resp := &rpc.StickerList{Stickers: make([]rpc.Sticker, 0, len(favs))}
	for _, f := range favs {
		resp.Stickers = append(resp.Stickers, rpc.Sticker{Ref: f.Ref, Name: f.Name, SavedAtMs: f.ModTime.UnixMilli()})
	}
	return resp, nil
}

// Package codec normalises operator-supplied media into the formats the
// messaging network expects: ogg/opus voice notes and webp stickers.
package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupported is returned for input formats the codec does not accept.
var ErrUnsupported = errors.New("unsupported media type")

// Output formats.
const (
	AudioMime   = "audio/ogg; codecs=opus"
	StickerMime = "image/webp"
)

// Normalizer converts media for sending.
type Normalizer interface {
	Audio(ctx context.Context, in []byte, mime string) ([]byte, error)
	Sticker(ctx context.Context, in []byte, mime string) ([]byte, error)
}

// FFmpeg shells out to an ffmpeg binary.
type FFmpeg struct {
	bin    string
	logger *zap.Logger
}

// NewFFmpeg returns a Normalizer backed by the ffmpeg at bin.
func NewFFmpeg(bin string, logger *zap.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin, logger: logger}
}

// Available reports whether the ffmpeg binary can be found.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.bin)
	return err == nil
}

// Audio transcodes to mono 16 kHz opus at 64 kbit/s in an ogg container.
func (f *FFmpeg) Audio(ctx context.Context, in []byte, mime string) ([]byte, error) {
	return f.run(ctx, in,
		"-vn", "-c:a", "libopus", "-b:a", "64k", "-ac", "1", "-ar", "16000", "-f", "ogg")
}

// Sticker converts to a 512x512 webp at quality 80. Webp input is returned as is.
func (f *FFmpeg) Sticker(ctx context.Context, in []byte, mime string) ([]byte, error) {
	if IsWebP(in) {
		return in, nil
	}
	return f.run(ctx, in,
		"-vf", "scale=512:512:force_original_aspect_ratio=decrease,pad=512:512:(ow-iw)/2:(oh-ih)/2:color=0x00000000",
		"-c:v", "libwebp", "-quality", "80", "-lossless", "0", "-frames:v", "1", "-f", "webp")
}

// run feeds in through a temp file (some containers need seeking) and
// collects the converted output from stdout.
func (f *FFmpeg) run(ctx context.Context, in []byte, outArgs ...string) ([]byte, error) {
	src, err := os.CreateTemp("", "wppdesk-codec-*")
	if err != nil {
		return nil, fmt.Errorf("codec temp: %w", err)
	}
	defer func() { _ = os.Remove(src.Name()) }()
	if _, err := src.Write(in); err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("codec temp: %w", err)
	}
	if err := src.Close(); err != nil {
		return nil, err
	}

	args := append([]string{"-hide_banner", "-loglevel", "error", "-y", "-i", src.Name()}, outArgs...)
	args = append(args, "pipe:1")
	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		f.logger.Warn("ffmpeg failed", zap.Error(err), zap.String("stderr", strings.TrimSpace(stderr.String())))
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no output")
	}
	return stdout.Bytes(), nil
}

// IsWebP reports whether data starts with a RIFF/WEBP header.
func IsWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// Sniff guesses the media type of data, mapping container sniffs onto the
// audio types accepted for voice notes.
func Sniff(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	switch ct {
	case "application/ogg":
		return "audio/ogg"
	case "video/webm":
		return "audio/webm"
	case "video/mp4":
		return "audio/mp4"
	}
	return ct
}

// BaseType strips parameters from a media type ("audio/ogg; codecs=opus" -> "audio/ogg").
func BaseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

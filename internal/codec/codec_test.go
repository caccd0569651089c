package codec

import (
	"context"
	"encoding/binary"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var webpHeader = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")

func TestIsWebP(t *testing.T) {
	assert.True(t, IsWebP(webpHeader))
	assert.False(t, IsWebP([]byte("\x89PNG\r\n\x1a\n0000")))
	assert.False(t, IsWebP([]byte("RIFF")))
}

func TestStickerPassthroughSkipsFFmpeg(t *testing.T) {
	f := NewFFmpeg("/nonexistent/ffmpeg", zap.NewNop())
	out, err := f.Sticker(context.Background(), webpHeader, "image/webp")
	require.NoError(t, err)
	assert.Equal(t, webpHeader, out)
}

func TestMissingBinaryFails(t *testing.T) {
	f := NewFFmpeg("/nonexistent/ffmpeg", zap.NewNop())
	assert.False(t, f.Available())
	_, err := f.Audio(context.Background(), []byte("OggS"), "audio/ogg")
	assert.Error(t, err)
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"ogg", []byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00\x00\x00"), "audio/ogg"},
		{"webp", webpHeader, "image/webp"},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "image/png"},
		{"jpeg", []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF"), "image/jpeg"},
		{"webm", []byte("\x1A\x45\xDF\xA3\x9f\x42\x86\x81\x01\x42\xf7\x81\x01\x42\xf2\x81\x04\x42\xf3\x81\x08\x42\x82\x84webm"), "audio/webm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff(tt.data))
		})
	}
}

func TestBaseType(t *testing.T) {
	assert.Equal(t, "audio/ogg", BaseType("Audio/Ogg; codecs=opus"))
	assert.Equal(t, "image/png", BaseType("image/png"))
}

func TestFFmpegAudioRoundTrip(t *testing.T) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	f := NewFFmpeg(bin, zap.NewNop())

	// One second of generated tone, encoded to wav by ffmpeg itself.
	wav, err := exec.Command(bin, "-hide_banner", "-loglevel", "error", "-f", "lavfi", "-i", "sine=frequency=440:duration=1", "-f", "wav", "pipe:1").Output()
	require.NoError(t, err)

	out, err := f.Audio(context.Background(), wav, "audio/wav")
	if err != nil {
		t.Skipf("ffmpeg lacks libopus: %v", err)
	}
	assert.Equal(t, "OggS", string(out[:4]))
}

// oggPage builds a minimal page header carrying granule; the segment table
// is left empty.
func oggPage(granule int64, payload []byte) []byte {
	page := make([]byte, 27)
	copy(page, "OggS")
	binary.LittleEndian.PutUint64(page[6:14], uint64(granule))
	return append(page, payload...)
}

func opusHeadPacket(preSkip uint16) []byte {
	p := []byte("OpusHead\x01\x01\x00\x00\x80\xbb\x00\x00\x00\x00\x00")
	binary.LittleEndian.PutUint16(p[10:12], preSkip)
	return p
}

func TestOpusSeconds(t *testing.T) {
	stream := append(oggPage(0, opusHeadPacket(312)), oggPage(0, []byte("OpusTags"))...)
	stream = append(stream, oggPage(312+48000*2, []byte("audio"))...)
	stream = append(stream, oggPage(312+48000*7+100, []byte("audio OggS\x05tail"))...)
	assert.EqualValues(t, 8, OpusSeconds(stream))

	exact := append(oggPage(0, opusHeadPacket(0)), oggPage(48000*3, nil)...)
	assert.EqualValues(t, 3, OpusSeconds(exact))

	assert.Zero(t, OpusSeconds([]byte("not an ogg stream")))
	assert.Zero(t, OpusSeconds(oggPage(0, opusHeadPacket(312))))
}

package codec

import (
	"bytes"
	"encoding/binary"
)

const opusGranuleRate = 48000

var (
	oggCapture = []byte("OggS")
	opusHead   = []byte("OpusHead")
)

// OpusSeconds reads the playback length of an ogg/opus stream from the
// granule position of its last page, less the encoder pre-skip, rounded
// up to whole seconds. It returns 0 when data is not ogg/opus.
func OpusSeconds(data []byte) uint32 {
	head := bytes.Index(data, opusHead)
	if head < 0 || len(data) < head+12 {
		return 0
	}
	preSkip := int64(binary.LittleEndian.Uint16(data[head+10 : head+12]))

	// The capture pattern may also occur inside packet data; a real page
	// header has stream structure version 0.
	for end := len(data); end > 0; {
		i := bytes.LastIndex(data[:end], oggCapture)
		if i < 0 {
			return 0
		}
		if len(data) >= i+14 && data[i+4] == 0 {
			granule := int64(binary.LittleEndian.Uint64(data[i+6 : i+14]))
			samples := granule - preSkip
			if granule < 0 || samples <= 0 {
				return 0
			}
			return uint32((samples + opusGranuleRate - 1) / opusGranuleRate)
		}
		end = i
	}
	return 0
}

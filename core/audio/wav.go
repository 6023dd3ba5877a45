package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DecodeClip turns fetched bytes into a playable clip. WAV containers
// (PCM16) are unwrapped to raw PCM; anything else is assumed to already be
// raw PCM in the default encoding.
func DecodeClip(ref Ref, data []byte) (Clip, error) {
	if isWAV(data) {
		pcm, encoding, err := decodeWAV(data)
		if err != nil {
			return Clip{}, fmt.Errorf("failed to decode wav for %q: %w", ref.ID, err)
		}
		return Clip{Ref: ref, PCM: pcm, Encoding: encoding}, nil
	}

	if len(data) == 0 {
		return Clip{}, fmt.Errorf("empty audio payload for %q", ref.ID)
	}

	return Clip{Ref: ref, PCM: data, Encoding: GetDefaultEncodingInfo()}, nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

const wavFormatPCM = 1

// decodeWAV extracts the PCM payload of a 16-bit PCM WAV container. Only the
// fmt and data chunks are consumed; other chunks are skipped.
func decodeWAV(data []byte) ([]byte, EncodingInfo, error) {
	encoding := EncodingInfo{}
	var pcm []byte

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkLen > len(data) {
			return nil, EncodingInfo{}, fmt.Errorf("truncated %q chunk", chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, EncodingInfo{}, fmt.Errorf("fmt chunk too short: %d bytes", chunkLen)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != wavFormatPCM {
				return nil, EncodingInfo{}, fmt.Errorf("unsupported wav format %d, only PCM is supported", format)
			}
			bitsPerSample := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bitsPerSample != 16 {
				return nil, EncodingInfo{}, fmt.Errorf("unsupported bit depth %d, only 16-bit PCM is supported", bitsPerSample)
			}
			encoding = EncodingInfo{
				SampleRate: int(binary.LittleEndian.Uint32(data[body+4 : body+8])),
				Format:     EncodingLinear16,
			}
		case "data":
			pcm = data[body : body+chunkLen]
		}

		// Chunks are word aligned.
		offset = body + chunkLen + chunkLen%2
	}

	if encoding.IsZero() {
		return nil, EncodingInfo{}, fmt.Errorf("missing fmt chunk")
	}
	if pcm == nil {
		return nil, EncodingInfo{}, fmt.Errorf("missing data chunk")
	}

	return pcm, encoding, nil
}

package audio

import "time"

// Clip is a fully buffered playable unit: the ref it was loaded for plus its
// raw PCM and encoding. Clips are what the preload cache stores and what
// playback surfaces consume.
type Clip struct {
	Ref      Ref
	PCM      []byte
	Encoding EncodingInfo
}

func (c Clip) IsZero() bool {
	return len(c.PCM) == 0
}

func (c Clip) Duration() time.Duration {
	return c.Encoding.Duration(len(c.PCM))
}

// Silence returns a trivial near-silent clip of the requested duration, used
// by the playback unlock step.
func Silence(d time.Duration, encoding EncodingInfo) Clip {
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}

	byteLen := encoding.ByteOffset(d)
	if byteLen <= 0 {
		byteLen = encoding.Format.ByteSize()
	}

	pcm := make([]byte, byteLen)
	if silence := encoding.SilenceValue(); silence != 0 {
		for i := range pcm {
			pcm[i] = silence
		}
	}

	return Clip{
		Ref:      Ref{ID: "silence"},
		PCM:      pcm,
		Encoding: encoding,
	}
}

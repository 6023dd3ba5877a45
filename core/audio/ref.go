package audio

import "time"

// Ref identifies one playable unit of audio. Identity is ID: two refs with
// the same ID name the same playable unit regardless of URL. Refs are
// immutable and supplied by the caller.
type Ref struct {
	ID  string
	URL string

	// Duration is an optional caller-supplied hint. Controllers derive the
	// authoritative duration from the loaded clip.
	Duration time.Duration
}

func (r Ref) IsZero() bool {
	return r.ID == ""
}

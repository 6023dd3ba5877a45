// Package playback provides the audio playback capability the cycle
// orchestrator drives: atomic one-at-a-time playback over a single reusable
// surface, a preload cache, and a resilient variant that adds stall
// detection, a safety timeout, and cooperative cancellation for unreliable
// network and device conditions.
package playback

import (
	"context"
	"errors"
	"time"

	"github.com/vocadrill/drill-core/core/audio"
)

// ErrNoSurface is returned when no playback surface exists at all. It is the
// one hard failure mode: there is no safe fallback, so it is reported to the
// caller instead of being swallowed.
var ErrNoSurface = errors.New("no playback surface available")

// ListenerHandle identifies one registered ended observer.
type ListenerHandle string

// EndedListener observes natural end of playback. Listeners run after the
// controller has gone idle; a panicking listener is logged and does not
// suppress delivery to the others.
type EndedListener func(ref audio.Ref)

// Controller is the narrow playback contract consumed by the orchestrator.
// Any conforming implementation may be substituted.
type Controller interface {
	// Play begins playback of exactly one ref, stopping whatever was playing
	// first. It returns once playback has started, not once it has ended;
	// completion is observed through the ended listeners.
	Play(ctx context.Context, ref audio.Ref) error
	// Stop is idempotent: it halts playback and resets position, and is safe
	// when nothing is playing.
	Stop()
	// Preload buffers each ref not already cached, fully off the playback
	// path. It is best-effort: individual load failures are logged and the
	// ref is simply left un-preloaded.
	Preload(ctx context.Context, refs []audio.Ref)

	IsPreloaded(ref audio.Ref) bool
	IsPlaying() bool
	// CurrentTime is the elapsed time of the current playback, zero when
	// idle.
	CurrentTime() time.Duration

	AddEndedListener(listener EndedListener) ListenerHandle
	RemoveEndedListener(handle ListenerHandle)
}

// Loader fetches and decodes one ref into a fully buffered clip.
type Loader interface {
	LoadClip(ctx context.Context, ref audio.Ref) (audio.Clip, error)
}

package playback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vocadrill/drill-core/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultStallPollInterval is how often elapsed playback time is sampled
	// while a clip is live.
	DefaultStallPollInterval = 1500 * time.Millisecond
	// DefaultSafetyTimeout is the absolute upper bound on one clip's
	// playback, independent of the stall watchdog.
	DefaultSafetyTimeout = 15 * time.Second

	unlockClipDuration = 50 * time.Millisecond
)

// Outcome is the terminal state of one resilient play. Stalled and timed-out
// clips resolve as close enough to ended: forward progress outranks perfect
// fidelity. Only a genuine load/start error rejects the caller, and a
// cancelled play is abandoned rather than completed.
type Outcome string

const (
	OutcomeEnded     Outcome = "ended"
	OutcomeStalled   Outcome = "stalled"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
)

// Completion is the token for one in-flight play. It settles exactly once.
type Completion struct {
	done    chan struct{}
	once    sync.Once
	outcome Outcome
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Outcome is valid once Done is closed.
func (c *Completion) Outcome() Outcome {
	return c.outcome
}

// Await blocks until the play settles or ctx is done.
func (c *Completion) Await(ctx context.Context) (Outcome, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return c.outcome, nil
	}
}

func (c *Completion) settle(outcome Outcome) {
	c.once.Do(func() {
		c.outcome = outcome
		close(c.done)
	})
}

type playAttempt struct {
	ref        audio.Ref
	completion *Completion

	stopOnce sync.Once
	stopCh   chan struct{}
	safety   *time.Timer
}

// stop tears down the attempt's watchdog and safety timer. Idempotent.
func (p *playAttempt) stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		if p.safety != nil {
			p.safety.Stop()
		}
	})
}

// Resilient is the playback realization for unreliable network and device
// conditions. On top of the atomic contract it unlocks autoplay-restricted
// surfaces, watches live clips for stalls, caps every clip with a safety
// timeout, and supports cooperative cancellation: a cancelled play settles
// silently and never invokes the end-of-playback callback.
type Resilient struct {
	*Atomic

	stallPollInterval time.Duration
	safetyTimeout     time.Duration

	unlocked atomic.Bool

	playMu   sync.Mutex
	inflight *playAttempt
	onEnded  func(ref audio.Ref)
}

type ResilientOption func(*Resilient)

func WithStallPollInterval(interval time.Duration) ResilientOption {
	return func(r *Resilient) { r.stallPollInterval = interval }
}

func WithSafetyTimeout(timeout time.Duration) ResilientOption {
	return func(r *Resilient) { r.safetyTimeout = timeout }
}

func NewResilient(element Element, loader Loader, opts ...ResilientOption) *Resilient {
	resilient := &Resilient{
		Atomic:            NewAtomic(element, loader),
		stallPollInterval: DefaultStallPollInterval,
		safetyTimeout:     DefaultSafetyTimeout,
	}

	if element != nil {
		element.SetOnEnded(resilient.handleElementEnded)
	}

	for _, opt := range opts {
		opt(resilient)
	}

	return resilient
}

// SetOnEnded registers the single callback invoked after every successful,
// non-cancelled completion. It is distinct from the per-call completion
// token and from the shared ended-listener registry.
func (r *Resilient) SetOnEnded(callback func(ref audio.Ref)) {
	r.playMu.Lock()
	r.onEnded = callback
	r.playMu.Unlock()
}

// Unlock plays a near-silent clip at zero volume and restores volume
// afterwards, releasing autoplay-restricted surfaces. Callers should invoke
// it from their platform's first-user-interaction signal. Idempotent once it
// succeeds; failures are logged, not fatal.
func (r *Resilient) Unlock(ctx context.Context) {
	if r.unlocked.Load() {
		return
	}
	if r.element == nil {
		logger.Warn("cannot unlock playback, no surface available")
		return
	}

	ctx, span := tracer.Start(ctx, "unlock playback")
	defer span.End()

	r.element.SetVolume(0)
	err := r.element.Load(ctx, audio.Silence(unlockClipDuration, audio.GetDefaultEncodingInfo()))
	if err == nil {
		err = r.element.Start()
	}
	r.element.Pause()
	r.element.Rewind()
	r.element.SetVolume(1)

	if err != nil {
		span.RecordError(err)
		logger.Warn("playback unlock failed", "error", err)
		return
	}

	r.unlocked.Store(true)
}

// IsUnlocked reports whether the surface has been unlocked.
func (r *Resilient) IsUnlocked() bool {
	return r.unlocked.Load()
}

// Play satisfies the controller contract; completion is observed through
// the ended listeners rather than the per-call token.
func (r *Resilient) Play(ctx context.Context, ref audio.Ref) error {
	_, err := r.PlayClip(ctx, ref)
	return err
}

// PlayClip starts one clip and returns its completion token. Any previously
// in-flight play is cancelled first. The token settles exactly once:
// naturally ended, stalled, or timed-out clips all settle successfully;
// cancellation settles silently; only load/start failures reject (via the
// returned error).
func (r *Resilient) PlayClip(ctx context.Context, ref audio.Ref) (*Completion, error) {
	ctx, span := tracer.Start(ctx, "play clip")
	defer span.End()
	span.SetAttributes(attribute.String("audio.ref_id", ref.ID))

	if r.element == nil {
		span.RecordError(ErrNoSurface)
		span.SetStatus(codes.Error, ErrNoSurface.Error())
		return nil, ErrNoSurface
	}

	r.Cancel()

	if !r.unlocked.Load() {
		r.Unlock(ctx)
	}

	clip, cached := r.cachedClip(ref)
	span.SetAttributes(attribute.Bool("audio.preloaded", cached))
	if !cached {
		var err error
		if clip, err = r.loadClip(ctx, ref); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if err := r.element.Load(ctx, clip); err != nil {
		err = fmt.Errorf("failed to load clip %q into surface: %w", ref.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	attempt := &playAttempt{ref: ref, completion: newCompletion(), stopCh: make(chan struct{})}
	attempt.safety = time.AfterFunc(r.safetyTimeout, func() {
		if r.finish(attempt, OutcomeTimedOut) {
			safetyTimeouts.Add(context.Background(), 1)
			logger.Warn("clip exceeded safety timeout, resolving as ended", "ref_id", attempt.ref.ID)
		}
	})

	r.playMu.Lock()
	r.inflight = attempt
	r.playMu.Unlock()

	r.mu.Lock()
	r.current = ref
	r.playing = true
	r.mu.Unlock()

	if err := r.element.Start(); err != nil {
		r.abandon(attempt)
		err = fmt.Errorf("failed to start clip %q: %w", ref.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	go r.watch(attempt)

	return attempt.completion, nil
}

// Cancel abandons the in-flight play, if any: the surface is paused and
// rewound, watchdog and timers are torn down, the completion token settles
// silently, and the end-of-playback callback is not invoked. Idempotent.
func (r *Resilient) Cancel() {
	r.playMu.Lock()
	attempt := r.inflight
	r.inflight = nil
	r.playMu.Unlock()

	r.mu.Lock()
	r.playing = false
	r.current = audio.Ref{}
	r.mu.Unlock()

	if r.element != nil {
		r.element.Pause()
		r.element.Rewind()
	}

	if attempt == nil {
		return
	}

	attempt.stop()
	attempt.completion.settle(OutcomeCancelled)
}

// Stop behaves as Cancel: a stopped play is abandoned, not completed.
func (r *Resilient) Stop() {
	r.Cancel()
}

func (r *Resilient) Close() error {
	r.Cancel()
	return r.Atomic.Close()
}

// watch samples elapsed time on a fixed interval. Unchanged elapsed time
// across two consecutive samples while live means the stream froze; ended
// events cannot be trusted to fire for a stalled stream, so the watchdog
// force-resolves the clip.
func (r *Resilient) watch(attempt *playAttempt) {
	ticker := time.NewTicker(r.stallPollInterval)
	defer ticker.Stop()

	lastPosition := time.Duration(-1)
	for {
		select {
		case <-attempt.stopCh:
			return
		case <-ticker.C:
			if !r.IsPlaying() {
				lastPosition = -1
				continue
			}

			position := r.element.Position()
			if position == lastPosition {
				if r.finish(attempt, OutcomeStalled) {
					stallsRecovered.Add(context.Background(), 1)
					logger.Warn("clip stalled, resolving as ended", "ref_id", attempt.ref.ID, "position", position.String())
				}
				return
			}
			lastPosition = position
		}
	}
}

func (r *Resilient) handleElementEnded() {
	r.playMu.Lock()
	attempt := r.inflight
	r.playMu.Unlock()

	if attempt == nil {
		// Ended without a live attempt (already cancelled or superseded):
		// fall through to the shared handler, which drops it unless the
		// atomic state says something is playing.
		r.Atomic.handleElementEnded()
		return
	}

	r.finish(attempt, OutcomeEnded)
}

// finish settles one attempt. The in-flight swap guarantees that out of the
// natural-end, stall, and timeout paths only the first one runs; the others
// see a stale attempt and return false.
func (r *Resilient) finish(attempt *playAttempt, outcome Outcome) bool {
	r.playMu.Lock()
	if r.inflight != attempt {
		r.playMu.Unlock()
		return false
	}
	r.inflight = nil
	onEnded := r.onEnded
	r.playMu.Unlock()

	attempt.stop()

	r.mu.Lock()
	r.playing = false
	r.current = audio.Ref{}
	listeners := r.snapshotListenersLocked()
	r.mu.Unlock()

	if outcome != OutcomeEnded {
		// Force-resolved: halt whatever output remains.
		r.element.Pause()
	}
	r.element.Rewind()

	attempt.completion.settle(outcome)

	for _, listener := range listeners {
		notifyEnded(listener, attempt.ref)
	}
	if onEnded != nil {
		notifyEnded(onEnded, attempt.ref)
	}

	return true
}

// abandon unwinds an attempt whose start failed before it went live.
func (r *Resilient) abandon(attempt *playAttempt) {
	r.playMu.Lock()
	if r.inflight == attempt {
		r.inflight = nil
	}
	r.playMu.Unlock()

	r.mu.Lock()
	r.playing = false
	r.current = audio.Ref{}
	r.mu.Unlock()

	attempt.stop()
}

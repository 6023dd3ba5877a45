package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vocadrill/drill-core/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Atomic is the basic realization of the playback capability: one reusable
// surface, strictly one clip audible at a time, and a preload cache keyed by
// ref identity. Cache entries are added by Preload and removed only by
// explicit clear or per-id eviction, never silently expired.
type Atomic struct {
	element Element
	loader  Loader

	mu        sync.Mutex
	cache     map[string]audio.Clip
	listeners map[ListenerHandle]EndedListener
	current   audio.Ref
	playing   bool
}

func NewAtomic(element Element, loader Loader) *Atomic {
	atomic := &Atomic{
		element:   element,
		loader:    loader,
		cache:     map[string]audio.Clip{},
		listeners: map[ListenerHandle]EndedListener{},
	}

	if element != nil {
		element.SetOnEnded(atomic.handleElementEnded)
	}

	return atomic
}

// Play stops whatever is playing, sources the clip (preferring the preload
// cache over a fresh fetch), and starts it. It returns once playback has
// started.
func (a *Atomic) Play(ctx context.Context, ref audio.Ref) error {
	ctx, span := tracer.Start(ctx, "play clip")
	defer span.End()
	span.SetAttributes(attribute.String("audio.ref_id", ref.ID))

	if a.element == nil {
		span.RecordError(ErrNoSurface)
		span.SetStatus(codes.Error, ErrNoSurface.Error())
		return ErrNoSurface
	}

	a.Stop()

	clip, cached := a.cachedClip(ref)
	span.SetAttributes(attribute.Bool("audio.preloaded", cached))
	if !cached {
		var err error
		if clip, err = a.loadClip(ctx, ref); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	if err := a.element.Load(ctx, clip); err != nil {
		err = fmt.Errorf("failed to load clip %q into surface: %w", ref.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := a.element.Start(); err != nil {
		err = fmt.Errorf("failed to start clip %q: %w", ref.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	a.mu.Lock()
	a.current = ref
	a.playing = true
	a.mu.Unlock()

	return nil
}

// Stop halts playback and resets position. Idempotent and safe when nothing
// is playing. Stopping never counts as the clip ending: ended listeners are
// not notified.
func (a *Atomic) Stop() {
	a.mu.Lock()
	a.current = audio.Ref{}
	a.playing = false
	a.mu.Unlock()

	if a.element != nil {
		a.element.Pause()
		a.element.Rewind()
	}
}

// Preload fully buffers each ref that is not already cached. Loading happens
// on a separate path from playback; a ref that fails to load is logged and
// simply treated as not preloaded.
func (a *Atomic) Preload(ctx context.Context, refs []audio.Ref) {
	ctx, span := tracer.Start(ctx, "preload clips")
	defer span.End()
	span.SetAttributes(attribute.Int("audio.ref_count", len(refs)))

	for _, ref := range refs {
		if a.IsPreloaded(ref) {
			continue
		}

		clip, err := a.loadClip(ctx, ref)
		if err != nil {
			preloadFailures.Add(ctx, 1)
			span.RecordError(err)
			logger.Warn("failed to preload clip", "ref_id", ref.ID, "error", err)
			continue
		}

		a.mu.Lock()
		a.cache[ref.ID] = clip
		a.mu.Unlock()
	}
}

func (a *Atomic) IsPreloaded(ref audio.Ref) bool {
	_, cached := a.cachedClip(ref)
	return cached
}

func (a *Atomic) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.playing
}

func (a *Atomic) CurrentTime() time.Duration {
	a.mu.Lock()
	playing := a.playing
	a.mu.Unlock()

	if !playing || a.element == nil {
		return 0
	}

	return a.element.Position()
}

// CurrentRef returns the ref being played, zero when idle.
func (a *Atomic) CurrentRef() audio.Ref {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.current
}

func (a *Atomic) ClearCache() {
	a.mu.Lock()
	a.cache = map[string]audio.Clip{}
	a.mu.Unlock()
}

func (a *Atomic) RemoveFromCache(ids []string) {
	a.mu.Lock()
	for _, id := range ids {
		delete(a.cache, id)
	}
	a.mu.Unlock()
}

func (a *Atomic) AddEndedListener(listener EndedListener) ListenerHandle {
	handle := ListenerHandle(uuid.NewString())

	a.mu.Lock()
	a.listeners[handle] = listener
	a.mu.Unlock()

	return handle
}

func (a *Atomic) RemoveEndedListener(handle ListenerHandle) {
	a.mu.Lock()
	delete(a.listeners, handle)
	a.mu.Unlock()
}

// Close stops playback, empties the cache, drops all observers, and
// releases the surface.
func (a *Atomic) Close() error {
	a.Stop()

	a.mu.Lock()
	a.cache = map[string]audio.Clip{}
	a.listeners = map[ListenerHandle]EndedListener{}
	a.mu.Unlock()

	if a.element == nil {
		return nil
	}

	if err := a.element.Close(); err != nil {
		return fmt.Errorf("failed to close playback surface: %w", err)
	}
	return nil
}

func (a *Atomic) cachedClip(ref audio.Ref) (audio.Clip, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	clip, cached := a.cache[ref.ID]
	return clip, cached
}

func (a *Atomic) loadClip(ctx context.Context, ref audio.Ref) (audio.Clip, error) {
	if a.loader == nil {
		return audio.Clip{}, fmt.Errorf("ref %q is not preloaded and no loader is configured", ref.ID)
	}

	clip, err := a.loader.LoadClip(ctx, ref)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("failed to load clip %q: %w", ref.ID, err)
	}
	return clip, nil
}

func (a *Atomic) handleElementEnded() {
	a.mu.Lock()
	if !a.playing {
		a.mu.Unlock()
		return
	}
	ref := a.current
	a.playing = false
	a.current = audio.Ref{}
	listeners := a.snapshotListenersLocked()
	a.mu.Unlock()

	a.element.Rewind()
	for _, listener := range listeners {
		notifyEnded(listener, ref)
	}
}

// snapshotListenersLocked must be called with mu held.
func (a *Atomic) snapshotListenersLocked() []EndedListener {
	listeners := make([]EndedListener, 0, len(a.listeners))
	for _, listener := range a.listeners {
		listeners = append(listeners, listener)
	}
	return listeners
}

// notifyEnded isolates observer faults: a panicking listener is logged and
// the remaining listeners still run.
func notifyEnded(listener EndedListener, ref audio.Ref) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Warn("ended listener panicked", "ref_id", ref.ID, "panic", recovered)
		}
	}()

	listener(ref)
}

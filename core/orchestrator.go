// Package cycle sequences one drill item at a time through a fixed
// multi-phase audio cycle: hear the known-language prompt, recall the target
// form during a timed silence, hear the target form in two voices, then a
// short transition back to idle. The orchestrator owns all cycle state and
// timers, drives a pluggable playback controller, and emits a typed event
// stream; it never decides what to play next and never persists anything.
package cycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vocadrill/drill-core/core/audio"
	"github.com/vocadrill/drill-core/core/drill"
	"github.com/vocadrill/drill-core/core/events"
	"github.com/vocadrill/drill-core/core/playback"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Orchestrator is the cycle phase state machine. It never polls: every
// transition is triggered by an audio ended callback or a timer firing, and
// every such callback carries the generation of the cycle that armed it so
// callbacks from a torn-down cycle are discarded.
type Orchestrator struct {
	playback playback.Controller

	mu            sync.Mutex
	config        Config
	activeConfig  Config
	state         State
	generation    uint64
	nextItemIndex int

	pauseTimer      *time.Timer
	transitionTimer *time.Timer
	removeEnded     func()

	listeners map[ListenerHandle]Listener

	closeOnce sync.Once
}

func New(controller playback.Controller, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		playback:  controller,
		config:    DefaultConfig(),
		state:     State{Phase: PhaseIdle},
		listeners: map[ListenerHandle]Listener{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// StartItem tears down any in-flight cycle, computes this item's pause
// duration, emits item_started, and enters PROMPT. It returns an error only
// when no playback surface exists at all; every softer playback failure is
// reported as a cycle.error event and advanced past.
func (o *Orchestrator) StartItem(ctx context.Context, item drill.Item, opts ...StartOption) error {
	ctx, span := tracer.Start(ctx, "start item")
	defer span.End()
	span.SetAttributes(attribute.String("drill.item_id", item.ID))

	options := StartOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	o.mu.Lock()
	o.teardownLocked()
	o.generation++
	gen := o.generation

	o.activeConfig = o.config
	pause := calculatePauseDuration(o.activeConfig, item.TargetText)
	if options.pauseOverride != nil {
		pause = *options.pauseOverride
	}

	index := o.nextItemIndex
	o.nextItemIndex++

	itemCopy := item
	o.state = State{
		Phase:         PhaseIdle,
		CurrentItem:   &itemCopy,
		CycleID:       uuid.NewString(),
		ItemIndex:     index,
		PauseDuration: pause,
	}
	cycleID := o.state.CycleID
	o.mu.Unlock()

	o.playback.Stop()

	// The ended handler is registered before the prompt starts so a clip
	// that ends instantly is still observed.
	handle := o.playback.AddEndedListener(func(ref audio.Ref) {
		o.onAudioEnded(gen, ref)
	})
	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		o.playback.RemoveEndedListener(handle)
		return nil
	}
	o.removeEnded = func() { o.playback.RemoveEndedListener(handle) }
	o.mu.Unlock()

	o.emit(events.NewItemStarted(PhaseIdle, item, index, cycleID))

	if !o.claimTransition(gen, PhaseIdle, PhasePrompt) {
		return nil
	}
	o.emit(events.NewPhaseChanged(PhasePrompt, PhaseIdle))

	if err := o.playPhaseClip(ctx, gen, PhasePrompt, true); err != nil {
		o.mu.Lock()
		o.teardownLocked()
		o.state = State{Phase: PhaseIdle, ItemIndex: o.state.ItemIndex}
		o.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// Stop tears down the in-flight cycle, forces IDLE, and emits cycle.stopped.
// Safe when already idle.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.teardownLocked()
	o.generation++
	o.state = State{Phase: PhaseIdle, ItemIndex: o.state.ItemIndex}
	o.mu.Unlock()

	o.playback.Stop()

	o.emit(events.NewCycleStopped(PhaseIdle))
}

// SkipPhase force-advances exactly one phase: the pause timer is cleared
// mid-pause, audio is stopped mid-playback. A skipped clip emits no
// audio.completed event; skip is distinct from natural completion. No-op
// unless a cycle is in flight.
func (o *Orchestrator) SkipPhase() {
	o.mu.Lock()
	if o.state.Phase == PhaseIdle || !o.state.IsPlaying {
		o.mu.Unlock()
		return
	}
	gen := o.generation
	phase := o.state.Phase
	if o.pauseTimer != nil {
		o.pauseTimer.Stop()
		o.pauseTimer = nil
	}
	if o.transitionTimer != nil {
		o.transitionTimer.Stop()
		o.transitionTimer = nil
	}
	o.mu.Unlock()

	if phase.IsAudioBearing() {
		o.playback.Stop()
	}

	o.completePhase(context.Background(), gen, phase, nil)
}

// UpdateConfig merges the patch into the live configuration. The merged
// config affects only future StartItem calls, never the cycle in flight.
func (o *Orchestrator) UpdateConfig(patch ConfigPatch) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	merged, err := o.config.merge(patch)
	if err != nil {
		return err
	}
	o.config = merged
	return nil
}

// State returns an immutable snapshot of the cycle state, a fresh deep copy
// per call.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state.clone()
}

// Preload buffers the clips of upcoming items ahead of their cycles.
// Best-effort, never consulted on the playback path.
func (o *Orchestrator) Preload(ctx context.Context, items []drill.Item) {
	refs := make([]audio.Ref, 0, len(items)*3)
	for _, item := range items {
		for _, ref := range []audio.Ref{item.KnownAudio, item.TargetVoice1, item.TargetVoice2} {
			if !ref.IsZero() {
				refs = append(refs, ref)
			}
		}
	}

	o.playback.Preload(ctx, refs)
}

// Close stops the in-flight cycle and drops all listeners. The playback
// controller is owned by the caller and is not closed here.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.Stop()

		o.mu.Lock()
		o.listeners = map[ListenerHandle]Listener{}
		o.mu.Unlock()
	})
}

// teardownLocked cancels every timer and ended handler the in-flight cycle
// armed. Callers must hold mu; combined with the generation bump that
// follows, it guarantees no event from the torn-down cycle fires afterward.
func (o *Orchestrator) teardownLocked() {
	if o.pauseTimer != nil {
		o.pauseTimer.Stop()
		o.pauseTimer = nil
	}
	if o.transitionTimer != nil {
		o.transitionTimer.Stop()
		o.transitionTimer = nil
	}
	if o.removeEnded != nil {
		o.removeEnded()
		o.removeEnded = nil
	}
}

// claimTransition atomically moves the cycle from one phase to the next,
// provided the generation is still live and the phase has not already moved.
// The single claim point is what keeps a user skip and a concurrent natural
// completion from double-advancing.
func (o *Orchestrator) claimTransition(gen uint64, from, to Phase) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != gen || o.state.Phase != from {
		return false
	}

	o.state.Phase = to
	o.state.IsPlaying = to != PhaseIdle

	now := time.Now()
	switch to {
	case PhasePrompt:
		o.state.PromptStartedAt = now
	case PhasePause:
		o.state.PromptEndedAt = now
		o.state.PauseStartedAt = now
	case PhaseVoice1:
		o.state.Voice1StartedAt = now
	}

	return true
}

// completePhase advances exactly one phase from `from`, emitting the
// completion event (when non-nil) before the phase change. Superseded calls
// are dropped.
func (o *Orchestrator) completePhase(ctx context.Context, gen uint64, from Phase, completed events.Event) {
	to := nextPhase(from)
	if !o.claimTransition(gen, from, to) {
		return
	}

	if completed != nil {
		o.emit(completed)
	}

	if to == PhaseIdle {
		o.finishItem(gen)
		return
	}

	o.emit(events.NewPhaseChanged(to, from))

	switch to {
	case PhasePause:
		o.startPause(gen)
	case PhaseVoice1, PhaseVoice2:
		o.playPhaseClip(ctx, gen, to, false)
	case PhaseTransition:
		o.startTransition(gen)
	}
}

// playPhaseClip starts the clip an audio-bearing phase plays. A playback
// failure degrades to phase-complete: the drill never stalls because one
// clip failed. Only the initial prompt of StartItem propagates the
// no-surface error to the caller.
func (o *Orchestrator) playPhaseClip(ctx context.Context, gen uint64, phase Phase, initial bool) error {
	o.mu.Lock()
	if o.generation != gen || o.state.CurrentItem == nil {
		o.mu.Unlock()
		return nil
	}
	item := *o.state.CurrentItem
	o.mu.Unlock()

	kind := audioKindFor(phase)
	ref := refFor(item, phase)

	if err := o.playback.Play(ctx, ref); err != nil {
		if initial && errors.Is(err, playback.ErrNoSurface) {
			return err
		}
		if !o.isLive(gen) {
			return nil
		}

		phaseErrors.Add(ctx, 1)
		logger.Warn("phase clip failed, advancing", "phase", string(phase), "audio_kind", string(kind), "error", err)
		o.emit(events.NewCycleError(phase, kind, err))
		o.completePhase(ctx, gen, phase, nil)
		return nil
	}

	if !o.isLive(gen) {
		return nil
	}
	o.emit(events.NewAudioStarted(phase, kind, ref))
	return nil
}

func (o *Orchestrator) onAudioEnded(gen uint64, ref audio.Ref) {
	o.mu.Lock()
	if o.generation != gen || !o.state.Phase.IsAudioBearing() {
		o.mu.Unlock()
		return
	}
	phase := o.state.Phase
	o.mu.Unlock()

	o.completePhase(context.Background(), gen, phase,
		events.NewAudioCompleted(phase, audioKindFor(phase), ref))
}

func (o *Orchestrator) startPause(gen uint64) {
	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		return
	}
	duration := o.state.PauseDuration
	o.pauseTimer = time.AfterFunc(duration, func() {
		o.completePhase(context.Background(), gen, PhasePause, nil)
	})
	o.mu.Unlock()

	o.emit(events.NewPauseStarted(PhasePause, duration))
}

func (o *Orchestrator) startTransition(gen uint64) {
	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		return
	}
	gap := o.activeConfig.TransitionGap
	o.transitionTimer = time.AfterFunc(gap, func() {
		o.completePhase(context.Background(), gen, PhaseTransition, nil)
	})
	o.mu.Unlock()
}

// finishItem emits item_completed with the cycle's phase timestamps and
// returns the orchestrator to idle, ready for the next StartItem.
func (o *Orchestrator) finishItem(gen uint64) {
	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		return
	}

	var item drill.Item
	if o.state.CurrentItem != nil {
		item = *o.state.CurrentItem
	}
	cycleID := o.state.CycleID
	promptStartedAt := o.state.PromptStartedAt
	promptEndedAt := o.state.PromptEndedAt
	voice1StartedAt := o.state.Voice1StartedAt

	removeEnded := o.removeEnded
	o.removeEnded = nil
	o.state = State{Phase: PhaseIdle, ItemIndex: o.state.ItemIndex}
	o.mu.Unlock()

	if removeEnded != nil {
		removeEnded()
	}

	itemsCompleted.Add(context.Background(), 1)
	o.emit(events.NewItemCompleted(PhaseTransition, item, cycleID, promptStartedAt, promptEndedAt, voice1StartedAt))
	o.emit(events.NewPhaseChanged(PhaseIdle, PhaseTransition))
}

func (o *Orchestrator) isLive(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.generation == gen
}

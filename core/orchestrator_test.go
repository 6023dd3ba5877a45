package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vocadrill/drill-core/core/audio"
	"github.com/vocadrill/drill-core/core/drill"
	"github.com/vocadrill/drill-core/core/events"
	"github.com/vocadrill/drill-core/core/playback"
)

type fakeController struct {
	mu         sync.Mutex
	playing    bool
	current    audio.Ref
	plays      []string
	stops      int
	playErrs   map[string]error
	preloaded  map[string]bool
	listeners  map[playback.ListenerHandle]playback.EndedListener
	nextHandle int
}

func newFakeController() *fakeController {
	return &fakeController{
		playErrs:  map[string]error{},
		preloaded: map[string]bool{},
		listeners: map[playback.ListenerHandle]playback.EndedListener{},
	}
}

func (f *fakeController) Play(_ context.Context, ref audio.Ref) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.playErrs[ref.ID]; err != nil {
		return err
	}

	f.playing = true
	f.current = ref
	f.plays = append(f.plays, ref.ID)
	return nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.playing = false
	f.current = audio.Ref{}
	f.stops++
}

func (f *fakeController) Preload(_ context.Context, refs []audio.Ref) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ref := range refs {
		f.preloaded[ref.ID] = true
	}
}

func (f *fakeController) IsPreloaded(ref audio.Ref) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.preloaded[ref.ID]
}

func (f *fakeController) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.playing
}

func (f *fakeController) CurrentTime() time.Duration {
	return 0
}

func (f *fakeController) AddEndedListener(listener playback.EndedListener) playback.ListenerHandle {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextHandle++
	handle := playback.ListenerHandle(fmt.Sprintf("handle-%d", f.nextHandle))
	f.listeners[handle] = listener
	return handle
}

func (f *fakeController) RemoveEndedListener(handle playback.ListenerHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.listeners, handle)
}

// finishCurrent simulates the current clip reaching its natural end.
func (f *fakeController) finishCurrent() {
	f.mu.Lock()
	ref := f.current
	f.playing = false
	f.current = audio.Ref{}
	listeners := make([]playback.EndedListener, 0, len(f.listeners))
	for _, listener := range f.listeners {
		listeners = append(listeners, listener)
	}
	f.mu.Unlock()

	for _, listener := range listeners {
		listener(ref)
	}
}

func (f *fakeController) currentRefID() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.current.ID
}

func (f *fakeController) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stops
}

func (f *fakeController) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.listeners)
}

func (f *fakeController) playedRefIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.plays...)
}

type eventCollector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *eventCollector) listen(event events.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *eventCollector) all() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]events.Event(nil), c.events...)
}

func (c *eventCollector) ofKind(kind events.Kind) []events.Event {
	var matched []events.Event
	for _, event := range c.all() {
		if event.Kind() == kind {
			matched = append(matched, event)
		}
	}
	return matched
}

func (c *eventCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.events)
}

func (c *eventCollector) phaseSequence() []Phase {
	var sequence []Phase
	for _, event := range c.all() {
		if changed, ok := event.(events.PhaseChanged); ok {
			sequence = append(sequence, changed.Phase())
		}
	}
	return sequence
}

func testItem(id string) drill.Item {
	return drill.Item{
		ID:         id,
		UnitID:     "unit-1",
		ThreadID:   "thread-1",
		Mode:       drill.ModeLearn,
		KnownText:  "the red house",
		TargetText: "la casa roja",
		KnownAudio:   audio.Ref{ID: id + "-known"},
		TargetVoice1: audio.Ref{ID: id + "-voice1"},
		TargetVoice2: audio.Ref{ID: id + "-voice2"},
	}
}

func fastConfig() Config {
	return Config{
		PauseDuration: 10 * time.Millisecond,
		MinPause:      time.Millisecond,
		MaxPause:      time.Second,
		TransitionGap: 10 * time.Millisecond,
		AdaptivePause: false,
	}
}

func waitFor(t *testing.T, message string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(message)
}

func TestCycleVisitsPhasesInOrder(t *testing.T) {
	controller := newFakeController()
	collector := &eventCollector{}
	orchestrator := New(controller, WithConfig(fastConfig()), WithListener(collector.listen))

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	waitFor(t, "prompt clip never started", func() bool { return controller.currentRefID() == "item-1-known" })
	controller.finishCurrent()

	waitFor(t, "voice 1 clip never started", func() bool { return controller.currentRefID() == "item-1-voice1" })
	controller.finishCurrent()

	waitFor(t, "voice 2 clip never started", func() bool { return controller.currentRefID() == "item-1-voice2" })
	controller.finishCurrent()

	waitFor(t, "cycle never returned to idle", func() bool { return orchestrator.State().Phase == PhaseIdle })

	expected := []Phase{PhasePrompt, PhasePause, PhaseVoice1, PhaseVoice2, PhaseTransition, PhaseIdle}
	got := collector.phaseSequence()
	if len(got) != len(expected) {
		t.Fatalf("expected phase sequence %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected phase sequence %v, got %v", expected, got)
		}
	}

	if completed := collector.ofKind(events.KindItemCompleted); len(completed) != 1 {
		t.Fatalf("expected exactly one item completed event, got %d", len(completed))
	}
	if started := collector.ofKind(events.KindAudioStarted); len(started) != 3 {
		t.Fatalf("expected three audio started events, got %d", len(started))
	}
	if ended := collector.ofKind(events.KindAudioCompleted); len(ended) != 3 {
		t.Fatalf("expected three audio completed events, got %d", len(ended))
	}
}

func TestItemCompletedCarriesPhaseTimestamps(t *testing.T) {
	controller := newFakeController()
	collector := &eventCollector{}
	orchestrator := New(controller, WithConfig(fastConfig()), WithListener(collector.listen))

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	controller.finishCurrent()
	waitFor(t, "voice 1 clip never started", func() bool { return controller.currentRefID() == "item-1-voice1" })
	controller.finishCurrent()
	waitFor(t, "voice 2 clip never started", func() bool { return controller.currentRefID() == "item-1-voice2" })
	controller.finishCurrent()
	waitFor(t, "cycle never completed", func() bool { return len(collector.ofKind(events.KindItemCompleted)) == 1 })

	completed := collector.ofKind(events.KindItemCompleted)[0].(events.ItemCompleted)
	if completed.Item.ID != "item-1" {
		t.Fatalf("expected completed item %q, got %q", "item-1", completed.Item.ID)
	}
	if completed.CycleID == "" {
		t.Fatal("expected a cycle id on the completed event")
	}
	if completed.PromptStartedAt.IsZero() || completed.PromptEndedAt.IsZero() || completed.Voice1StartedAt.IsZero() {
		t.Fatalf("expected all phase timestamps to be set, got %+v", completed)
	}
	if completed.PromptEndedAt.Before(completed.PromptStartedAt) {
		t.Fatal("expected prompt end to follow prompt start")
	}
	if completed.Voice1StartedAt.Before(completed.PromptEndedAt) {
		t.Fatal("expected voice 1 start to follow prompt end")
	}
}

func TestStopLeavesIdleAndCancelsTimers(t *testing.T) {
	controller := newFakeController()
	collector := &eventCollector{}
	config := fastConfig()
	config.PauseDuration = 50 * time.Millisecond
	orchestrator := New(controller, WithConfig(config), WithListener(collector.listen))

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	controller.finishCurrent()
	waitFor(t, "pause never started", func() bool { return orchestrator.State().Phase == PhasePause })

	orchestrator.Stop()

	state := orchestrator.State()
	if state.Phase != PhaseIdle {
		t.Fatalf("expected phase %q after stop, got %q", PhaseIdle, state.Phase)
	}
	if state.IsPlaying {
		t.Fatal("expected stopped cycle not to report playing")
	}
	if state.CurrentItem != nil {
		t.Fatal("expected no current item while idle")
	}
	if controller.stopCount() == 0 {
		t.Fatal("expected playback to be stopped")
	}
	if stopped := collector.ofKind(events.KindCycleStopped); len(stopped) != 1 {
		t.Fatalf("expected one cycle stopped event, got %d", len(stopped))
	}

	// The pause timer was armed for 50ms; let it elapse and verify the
	// torn-down cycle emits nothing further.
	countAfterStop := collector.count()
	time.Sleep(120 * time.Millisecond)
	if got := collector.count(); got != countAfterStop {
		t.Fatalf("expected no events after stop, got %d more", got-countAfterStop)
	}
}

func TestStopIsSafeWhenIdle(t *testing.T) {
	controller := newFakeController()
	orchestrator := New(controller, WithConfig(fastConfig()))

	orchestrator.Stop()
	orchestrator.Stop()

	if got := orchestrator.State().Phase; got != PhaseIdle {
		t.Fatalf("expected phase %q, got %q", PhaseIdle, got)
	}
}

func TestSkipPhaseAdvancesExactlyOne(t *testing.T) {
	controller := newFakeController()
	collector := &eventCollector{}
	config := fastConfig()
	config.PauseDuration = 500 * time.Millisecond
	orchestrator := New(controller, WithConfig(config), WithListener(collector.listen))

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	// Skip the prompt mid-playback.
	orchestrator.SkipPhase()
	waitFor(t, "skip never reached pause", func() bool { return orchestrator.State().Phase == PhasePause })
	if controller.stopCount() == 0 {
		t.Fatal("expected skipped prompt audio to be stopped")
	}
	if completed := collector.ofKind(events.KindAudioCompleted); len(completed) != 0 {
		t.Fatalf("expected no audio completed events for a skipped clip, got %d", len(completed))
	}

	// Skip the pause mid-timer.
	orchestrator.SkipPhase()
	waitFor(t, "skip never reached voice 1", func() bool { return controller.currentRefID() == "item-1-voice1" })
	if got := orchestrator.State().Phase; got != PhaseVoice1 {
		t.Fatalf("expected phase %q after second skip, got %q", PhaseVoice1, got)
	}
}

func TestSkipPhaseIsNoopWhenIdle(t *testing.T) {
	controller := newFakeController()
	collector := &eventCollector{}
	orchestrator := New(controller, WithConfig(fastConfig()), WithListener(collector.listen))

	orchestrator.SkipPhase()

	if got := collector.count(); got != 0 {
		t.Fatalf("expected no events from an idle skip, got %d", got)
	}
	if controller.stopCount() != 0 {
		t.Fatal("expected no playback stop from an idle skip")
	}
}

func TestNewItemTearsDownPreviousCycle(t *testing.T) {
	controller := newFakeController()
	collector := &eventCollector{}
	orchestrator := New(controller, WithConfig(fastConfig()), WithListener(collector.listen))

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected first start to succeed, got %v", err)
	}
	if err := orchestrator.StartItem(context.Background(), testItem("item-2")); err != nil {
		t.Fatalf("expected second start to succeed, got %v", err)
	}

	if got := controller.listenerCount(); got != 1 {
		t.Fatalf("expected exactly one live ended handler after restart, got %d", got)
	}
	if got := controller.currentRefID(); got != "item-2-known" {
		t.Fatalf("expected the new item's prompt to be playing, got %q", got)
	}
	if controller.stopCount() == 0 {
		t.Fatal("expected the previous item's audio to be stopped")
	}

	// Drive the second item to completion and verify no event carries the
	// superseded item.
	controller.finishCurrent()
	waitFor(t, "voice 1 clip never started", func() bool { return controller.currentRefID() == "item-2-voice1" })
	controller.finishCurrent()
	waitFor(t, "voice 2 clip never started", func() bool { return controller.currentRefID() == "item-2-voice2" })
	controller.finishCurrent()
	waitFor(t, "cycle never completed", func() bool { return len(collector.ofKind(events.KindItemCompleted)) == 1 })

	for _, event := range collector.ofKind(events.KindAudioCompleted) {
		if completed := event.(events.AudioCompleted); !strings.HasPrefix(completed.Ref.ID, "item-2") {
			t.Fatalf("expected only the new item's clips to complete, got %q", completed.Ref.ID)
		}
	}
	completed := collector.ofKind(events.KindItemCompleted)[0].(events.ItemCompleted)
	if completed.Item.ID != "item-2" {
		t.Fatalf("expected item %q to complete, got %q", "item-2", completed.Item.ID)
	}
}

func TestAudioErrorEmitsOnceAndAdvances(t *testing.T) {
	controller := newFakeController()
	controller.playErrs["item-1-voice1"] = errors.New("decode failed")
	collector := &eventCollector{}
	orchestrator := New(controller, WithConfig(fastConfig()), WithListener(collector.listen))

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	controller.finishCurrent()

	// Voice 1 fails to play; the cycle must advance straight to voice 2.
	waitFor(t, "voice 2 clip never started", func() bool { return controller.currentRefID() == "item-1-voice2" })

	cycleErrors := collector.ofKind(events.KindCycleError)
	if len(cycleErrors) != 1 {
		t.Fatalf("expected exactly one error event, got %d", len(cycleErrors))
	}
	failure := cycleErrors[0].(events.CycleError)
	if failure.Phase() != PhaseVoice1 {
		t.Fatalf("expected error tagged with phase %q, got %q", PhaseVoice1, failure.Phase())
	}
	if failure.AudioKind != events.AudioKindTargetVoice1 {
		t.Fatalf("expected error tagged %q, got %q", events.AudioKindTargetVoice1, failure.AudioKind)
	}
	if failure.Err == nil {
		t.Fatal("expected error event to carry the underlying cause")
	}
}

func TestStartItemReportsMissingSurface(t *testing.T) {
	controller := newFakeController()
	controller.playErrs["item-1-known"] = playback.ErrNoSurface
	orchestrator := New(controller, WithConfig(fastConfig()))

	err := orchestrator.StartItem(context.Background(), testItem("item-1"))
	if !errors.Is(err, playback.ErrNoSurface) {
		t.Fatalf("expected ErrNoSurface, got %v", err)
	}
	if got := orchestrator.State().Phase; got != PhaseIdle {
		t.Fatalf("expected phase %q after failed start, got %q", PhaseIdle, got)
	}
}

func TestUpdateConfigAppliesToNextStartOnly(t *testing.T) {
	controller := newFakeController()
	config := fastConfig()
	config.PauseDuration = 40 * time.Millisecond
	orchestrator := New(controller, WithConfig(config))

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	newPause := 80 * time.Millisecond
	if err := orchestrator.UpdateConfig(ConfigPatch{PauseDuration: &newPause}); err != nil {
		t.Fatalf("expected config update to succeed, got %v", err)
	}

	if got := orchestrator.State().PauseDuration; got != 40*time.Millisecond {
		t.Fatalf("expected in-flight cycle to keep its pause of 40ms, got %s", got)
	}

	orchestrator.Stop()
	if err := orchestrator.StartItem(context.Background(), testItem("item-2")); err != nil {
		t.Fatalf("expected restart to succeed, got %v", err)
	}
	if got := orchestrator.State().PauseDuration; got != newPause {
		t.Fatalf("expected next cycle to use the merged pause %s, got %s", newPause, got)
	}
}

func TestStartItemPauseOverride(t *testing.T) {
	controller := newFakeController()
	orchestrator := New(controller, WithConfig(fastConfig()))

	override := 123 * time.Millisecond
	if err := orchestrator.StartItem(context.Background(), testItem("item-1"), WithPauseOverride(override)); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	if got := orchestrator.State().PauseDuration; got != override {
		t.Fatalf("expected pause override %s, got %s", override, got)
	}
}

func TestStateSnapshotIsDeepCopy(t *testing.T) {
	controller := newFakeController()
	orchestrator := New(controller, WithConfig(fastConfig()))

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	snapshot := orchestrator.State()
	if snapshot.CurrentItem == nil {
		t.Fatal("expected snapshot to carry the current item")
	}
	snapshot.CurrentItem.KnownText = "mutated"

	if got := orchestrator.State().CurrentItem.KnownText; got != "the red house" {
		t.Fatalf("expected live state to be unaffected by snapshot mutation, got %q", got)
	}
}

func TestItemIndexIncrementsAcrossStarts(t *testing.T) {
	controller := newFakeController()
	collector := &eventCollector{}
	orchestrator := New(controller, WithConfig(fastConfig()), WithListener(collector.listen))

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected first start to succeed, got %v", err)
	}
	if err := orchestrator.StartItem(context.Background(), testItem("item-2")); err != nil {
		t.Fatalf("expected second start to succeed, got %v", err)
	}

	started := collector.ofKind(events.KindItemStarted)
	if len(started) != 2 {
		t.Fatalf("expected two item started events, got %d", len(started))
	}
	first := started[0].(events.ItemStarted)
	second := started[1].(events.ItemStarted)
	if first.ItemIndex != 0 || second.ItemIndex != 1 {
		t.Fatalf("expected item indices 0 and 1, got %d and %d", first.ItemIndex, second.ItemIndex)
	}
	if first.CycleID == second.CycleID {
		t.Fatal("expected each cycle to get its own id")
	}
}

func TestListenerPanicIsolation(t *testing.T) {
	controller := newFakeController()
	collector := &eventCollector{}
	orchestrator := New(controller,
		WithConfig(fastConfig()),
		WithListener(func(events.Event) { panic("listener fault") }),
		WithListener(collector.listen),
	)

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	if started := collector.ofKind(events.KindItemStarted); len(started) != 1 {
		t.Fatalf("expected the surviving listener to receive item started, got %d", len(started))
	}
}

func TestRemoveListenerStopsDelivery(t *testing.T) {
	controller := newFakeController()
	collector := &eventCollector{}
	orchestrator := New(controller, WithConfig(fastConfig()))

	handle := orchestrator.AddListener(collector.listen)
	orchestrator.RemoveListener(handle)

	if err := orchestrator.StartItem(context.Background(), testItem("item-1")); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	if got := collector.count(); got != 0 {
		t.Fatalf("expected removed listener to receive nothing, got %d events", got)
	}
}

func TestPreloadBuffersAllItemClips(t *testing.T) {
	controller := newFakeController()
	orchestrator := New(controller, WithConfig(fastConfig()))

	orchestrator.Preload(context.Background(), []drill.Item{testItem("item-1")})

	for _, id := range []string{"item-1-known", "item-1-voice1", "item-1-voice2"} {
		if !controller.IsPreloaded(audio.Ref{ID: id}) {
			t.Fatalf("expected ref %q to be preloaded", id)
		}
	}
}

package events

import (
	"time"

	"github.com/vocadrill/drill-core/core/drill"
)

const (
	// KindItemStarted identifies the start of a new item's cycle.
	KindItemStarted Kind = "cycle.item_started"
	// KindItemCompleted identifies a full pass through all phases of one item.
	KindItemCompleted Kind = "cycle.item_completed"
	// KindCycleStopped identifies an explicit caller stop.
	KindCycleStopped Kind = "cycle.stopped"
	// KindCycleError identifies a non-fatal playback failure inside a phase.
	KindCycleError Kind = "cycle.error"
)

// ItemStarted marks the beginning of one item's cycle.
type ItemStarted struct {
	Base
	Item      drill.Item
	ItemIndex int
	CycleID   string
}

// NewItemStarted creates an item started event.
func NewItemStarted(phase Phase, item drill.Item, itemIndex int, cycleID string) ItemStarted {
	return ItemStarted{Base: NewBase(KindItemStarted, phase), Item: item, ItemIndex: itemIndex, CycleID: cycleID}
}

// ItemCompleted marks the completion of one item's cycle and carries the
// phase timestamps downstream timing analysis needs.
type ItemCompleted struct {
	Base
	Item    drill.Item
	CycleID string

	PromptStartedAt time.Time
	PromptEndedAt   time.Time
	Voice1StartedAt time.Time
}

// NewItemCompleted creates an item completed event.
func NewItemCompleted(phase Phase, item drill.Item, cycleID string, promptStartedAt, promptEndedAt, voice1StartedAt time.Time) ItemCompleted {
	return ItemCompleted{
		Base:    NewBase(KindItemCompleted, phase),
		Item:    item,
		CycleID: cycleID,

		PromptStartedAt: promptStartedAt,
		PromptEndedAt:   promptEndedAt,
		Voice1StartedAt: voice1StartedAt,
	}
}

// CycleStopped marks an explicit stop; the orchestrator is idle afterwards.
type CycleStopped struct{ Base }

// NewCycleStopped creates a cycle stopped event.
func NewCycleStopped(phase Phase) CycleStopped {
	return CycleStopped{Base: NewBase(KindCycleStopped, phase)}
}

// CycleError carries a playback failure for the phase named in the base. The
// cycle advances past the failed phase regardless.
type CycleError struct {
	Base
	AudioKind AudioKind
	Err       error
}

// NewCycleError creates a cycle error event.
func NewCycleError(phase Phase, audioKind AudioKind, err error) CycleError {
	return CycleError{Base: NewBase(KindCycleError, phase), AudioKind: audioKind, Err: err}
}

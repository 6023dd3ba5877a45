package cycle

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/vocadrill/drill-core/core/drill"
)

// State is the orchestrator's cycle state. It is owned and mutated
// exclusively by the orchestrator; callers receive a fresh deep copy per
// read and can never reach live state through it.
type State struct {
	Phase       Phase
	CurrentItem *drill.Item
	CycleID     string
	ItemIndex   int
	IsPlaying   bool

	// PauseDuration is fixed for the whole item, computed once at start.
	PauseDuration time.Duration

	PauseStartedAt  time.Time
	PromptStartedAt time.Time
	PromptEndedAt   time.Time
	Voice1StartedAt time.Time
}

func (s State) clone() State {
	copied := State{}
	if err := copier.CopyWithOption(&copied, s, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("failed to deep-copy cycle state", "error", err)
		return s
	}
	return copied
}

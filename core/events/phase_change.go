package events

import "time"

const (
	// KindPhaseChanged identifies entry into a new phase.
	KindPhaseChanged Kind = "phase.changed"
	// KindPauseStarted identifies the start of the recall pause.
	KindPauseStarted Kind = "phase.pause_started"
)

// PhaseChanged marks entry into a new phase. The new phase is the base
// phase; Previous is the phase being left.
type PhaseChanged struct {
	Base
	Previous Phase
}

// NewPhaseChanged creates a phase changed event.
func NewPhaseChanged(newPhase, previous Phase) PhaseChanged {
	return PhaseChanged{Base: NewBase(KindPhaseChanged, newPhase), Previous: previous}
}

// PauseStarted marks the start of the timed recall silence.
type PauseStarted struct {
	Base
	Duration time.Duration
}

// NewPauseStarted creates a pause started event.
func NewPauseStarted(phase Phase, duration time.Duration) PauseStarted {
	return PauseStarted{Base: NewBase(KindPauseStarted, phase), Duration: duration}
}

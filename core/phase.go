package cycle

import (
	"github.com/vocadrill/drill-core/core/audio"
	"github.com/vocadrill/drill-core/core/drill"
	"github.com/vocadrill/drill-core/core/events"
)

// Phase aliases events.Phase so callers observing orchestrator state and
// callers consuming the event stream share one phase vocabulary.
type Phase = events.Phase

const (
	PhaseIdle       = events.PhaseIdle
	PhasePrompt     = events.PhasePrompt
	PhasePause      = events.PhasePause
	PhaseVoice1     = events.PhaseVoice1
	PhaseVoice2     = events.PhaseVoice2
	PhaseTransition = events.PhaseTransition
)

// nextPhase returns the phase that follows p in the fixed cycle order.
func nextPhase(p Phase) Phase {
	switch p {
	case PhaseIdle:
		return PhasePrompt
	case PhasePrompt:
		return PhasePause
	case PhasePause:
		return PhaseVoice1
	case PhaseVoice1:
		return PhaseVoice2
	case PhaseVoice2:
		return PhaseTransition
	case PhaseTransition:
		return PhaseIdle
	}
	return PhaseIdle
}

// audioKindFor maps an audio-bearing phase to the semantic label of its
// clip.
func audioKindFor(p Phase) events.AudioKind {
	switch p {
	case PhasePrompt:
		return events.AudioKindKnown
	case PhaseVoice1:
		return events.AudioKindTargetVoice1
	case PhaseVoice2:
		return events.AudioKindTargetVoice2
	}
	return ""
}

// refFor returns the clip an audio-bearing phase plays for this item.
func refFor(item drill.Item, p Phase) audio.Ref {
	switch p {
	case PhasePrompt:
		return item.KnownAudio
	case PhaseVoice1:
		return item.TargetVoice1
	case PhaseVoice2:
		return item.TargetVoice2
	}
	return audio.Ref{}
}

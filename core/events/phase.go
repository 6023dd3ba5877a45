package events

// Phase names one stage of a drill cycle. Phases execute in the fixed order
// PROMPT, PAUSE, VOICE_1, VOICE_2, TRANSITION; IDLE is both the initial
// state and the terminal state after each item.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePrompt     Phase = "prompt"
	PhasePause      Phase = "pause"
	PhaseVoice1     Phase = "voice_1"
	PhaseVoice2     Phase = "voice_2"
	PhaseTransition Phase = "transition"
)

// ShowsKnownText reports whether the known-language text is visible during
// this phase. Text visibility is a pure function of phase, never of elapsed
// time or audio progress.
func (p Phase) ShowsKnownText() bool {
	switch p {
	case PhasePrompt, PhasePause, PhaseVoice1, PhaseVoice2:
		return true
	}
	return false
}

// ShowsTargetText reports whether the target-language text is visible.
// Target text must never appear before the second target voice has started.
func (p Phase) ShowsTargetText() bool {
	return p == PhaseVoice2
}

// IsAudioBearing reports whether this phase plays a clip (as opposed to
// running a timer or sitting idle).
func (p Phase) IsAudioBearing() bool {
	switch p {
	case PhasePrompt, PhaseVoice1, PhaseVoice2:
		return true
	}
	return false
}

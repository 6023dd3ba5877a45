package events

import "github.com/vocadrill/drill-core/core/audio"

// AudioKind is the semantic label of a phase's clip, independent of which
// ref happens to carry it.
type AudioKind string

const (
	AudioKindKnown        AudioKind = "known"
	AudioKindTargetVoice1 AudioKind = "target_voice1"
	AudioKindTargetVoice2 AudioKind = "target_voice2"
)

const (
	// KindAudioStarted identifies the start of a phase's clip.
	KindAudioStarted Kind = "audio.started"
	// KindAudioCompleted identifies the natural end of a phase's clip.
	KindAudioCompleted Kind = "audio.completed"
)

// AudioStarted marks the start of playback for a phase's clip.
type AudioStarted struct {
	Base
	AudioKind AudioKind
	Ref       audio.Ref
}

// NewAudioStarted creates an audio started event.
func NewAudioStarted(phase Phase, audioKind AudioKind, ref audio.Ref) AudioStarted {
	return AudioStarted{Base: NewBase(KindAudioStarted, phase), AudioKind: audioKind, Ref: ref}
}

// AudioCompleted marks the natural end of a phase's clip. User-triggered
// skips do not emit it.
type AudioCompleted struct {
	Base
	AudioKind AudioKind
	Ref       audio.Ref
}

// NewAudioCompleted creates an audio completed event.
func NewAudioCompleted(phase Phase, audioKind AudioKind, ref audio.Ref) AudioCompleted {
	return AudioCompleted{Base: NewBase(KindAudioCompleted, phase), AudioKind: audioKind, Ref: ref}
}

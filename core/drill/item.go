// Package drill holds the drill content model consumed read-only by the
// cycle orchestrator. Items are assembled by an external scheduler that
// decides what the learner practices next.
package drill

import "github.com/vocadrill/drill-core/core/audio"

type Mode string

const (
	ModeLearn  Mode = "learn"
	ModeReview Mode = "review"
)

// Item bundles one practiced unit with the specific phrase being drilled,
// its parent context, the scheduling thread it belongs to, and the audio for
// each voiced cycle phase. Exactly one item is current at a time.
type Item struct {
	ID       string
	UnitID   string
	ThreadID string
	Mode     Mode

	// Context is the parent context the phrase appears in, shown by UI
	// consumers alongside the known text.
	Context string

	KnownText  string
	TargetText string

	KnownAudio   audio.Ref
	TargetVoice1 audio.Ref
	TargetVoice2 audio.Ref
}

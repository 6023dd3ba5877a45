package playback

import (
	"context"
	"time"

	"github.com/vocadrill/drill-core/core/audio"
)

// Element is the single reusable playback surface a controller owns. It is
// created once and never recreated per play: on some platforms recreating
// the surface forfeits a once-granted permission to play audio.
//
// Load swaps the surface's source and returns once enough is buffered to
// start; with an already buffered clip it returns immediately. Start begins
// audible output of the loaded source from its current position. The ended
// callback fires once each time a loaded source plays to its natural end;
// Pause and Rewind never trigger it.
type Element interface {
	Load(ctx context.Context, clip audio.Clip) error
	Start() error
	Pause()
	Rewind()
	Position() time.Duration
	SetVolume(volume float64)
	SetOnEnded(callback func())
	Close() error
}

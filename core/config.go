package cycle

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
)

// Config controls cycle timing. It is captured once per StartItem; a patch
// merged through UpdateConfig takes effect on the next item, never
// mid-cycle.
type Config struct {
	// PauseDuration is the base recall pause after the prompt.
	PauseDuration time.Duration
	// MinPause and MaxPause clamp the adaptive pause computation.
	MinPause time.Duration
	MaxPause time.Duration
	// TransitionGap is the fixed silence between item completion and idle.
	TransitionGap time.Duration
	// AdaptivePause extends the pause for phrases longer than three words.
	AdaptivePause bool
}

func DefaultConfig() Config {
	return Config{
		PauseDuration: 3 * time.Second,
		MinPause:      time.Second,
		MaxPause:      10 * time.Second,
		TransitionGap: 500 * time.Millisecond,
		AdaptivePause: true,
	}
}

// ConfigPatch is a partial configuration; nil fields keep their current
// value.
type ConfigPatch struct {
	PauseDuration *time.Duration
	MinPause      *time.Duration
	MaxPause      *time.Duration
	TransitionGap *time.Duration
	AdaptivePause *bool
}

// merge applies the patch onto a copy of c. Nil patch fields leave the
// target untouched.
func (c Config) merge(patch ConfigPatch) (Config, error) {
	if err := copier.CopyWithOption(&c, patch, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		return c, fmt.Errorf("failed to merge config patch: %w", err)
	}
	return c, nil
}

package cycle

import (
	"strings"
	"time"
)

const perWordPauseExtension = 300 * time.Millisecond

// calculatePauseDuration computes the recall pause for one item, once, at
// item start. With adaptation disabled the base duration is used unchanged.
// With adaptation enabled, phrases longer than three words earn 300ms per
// extra word, clamped to the configured floor and ceiling.
func calculatePauseDuration(config Config, phrase string) time.Duration {
	if !config.AdaptivePause {
		return config.PauseDuration
	}

	extraWords := wordCount(phrase) - 3
	if extraWords < 0 {
		extraWords = 0
	}

	duration := config.PauseDuration + time.Duration(extraWords)*perWordPauseExtension
	return min(max(duration, config.MinPause), config.MaxPause)
}

func wordCount(phrase string) int {
	return len(strings.Fields(phrase))
}

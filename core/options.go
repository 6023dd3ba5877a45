package cycle

import (
	"time"

	"github.com/google/uuid"
)

type OrchestratorOption func(*Orchestrator)

// WithConfig replaces the default timing configuration.
func WithConfig(config Config) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config = config
	}
}

// WithListener registers an event listener at construction time.
func WithListener(listener Listener) OrchestratorOption {
	return func(o *Orchestrator) {
		o.listeners[ListenerHandle(uuid.NewString())] = listener
	}
}

type StartOptions struct {
	pauseOverride *time.Duration
}

type StartOption func(*StartOptions)

// WithPauseOverride fixes the recall pause for this item, bypassing the
// adaptive computation.
func WithPauseOverride(duration time.Duration) StartOption {
	return func(o *StartOptions) {
		o.pauseOverride = &duration
	}
}

// Package config provides the configuration schema and loader for drill
// settings: cycle timing defaults, playback device preferences, and
// synthesis voices.
package config

import (
	"time"

	cycle "github.com/vocadrill/drill-core/core"
	"github.com/vocadrill/drill-core/core/playback"
)

// Backend selects the playback surface implementation.
type Backend string

const (
	BackendMiniaudio Backend = "miniaudio"
	BackendPortAudio Backend = "portaudio"
)

// IsValid reports whether b is a recognised playback backend.
func (b Backend) IsValid() bool {
	return b == BackendMiniaudio || b == BackendPortAudio
}

// Config is the root configuration structure for a drill session.
type Config struct {
	Drill     DrillConfig     `yaml:"drill" json:"drill"`
	Playback  PlaybackConfig  `yaml:"playback" json:"playback"`
	Synthesis SynthesisConfig `yaml:"synthesis" json:"synthesis"`
}

// DrillConfig holds cycle timing defaults. Unset fields fall back to the
// orchestrator's defaults.
type DrillConfig struct {
	PauseDurationMS int   `yaml:"pause_duration_ms" json:"pause_duration_ms"`
	MinPauseMS      int   `yaml:"min_pause_ms" json:"min_pause_ms"`
	MaxPauseMS      int   `yaml:"max_pause_ms" json:"max_pause_ms"`
	TransitionGapMS int   `yaml:"transition_gap_ms" json:"transition_gap_ms"`
	AdaptivePause   *bool `yaml:"adaptive_pause" json:"adaptive_pause,omitempty"`
}

// PlaybackConfig selects the playback backend and its recovery intervals.
type PlaybackConfig struct {
	Backend             Backend `yaml:"backend" json:"backend"`
	StallPollIntervalMS int     `yaml:"stall_poll_interval_ms" json:"stall_poll_interval_ms"`
	SafetyTimeoutMS     int     `yaml:"safety_timeout_ms" json:"safety_timeout_ms"`
}

// SynthesisConfig names the voices used when clips are synthesized instead
// of pre-recorded.
type SynthesisConfig struct {
	Voice1 string `yaml:"voice_1" json:"voice_1"`
	Voice2 string `yaml:"voice_2" json:"voice_2"`
}

// CycleConfig converts the drill section into the orchestrator's runtime
// configuration. Unset fields keep the orchestrator defaults.
func (c *Config) CycleConfig() cycle.Config {
	merged := cycle.DefaultConfig()

	if c.Drill.PauseDurationMS > 0 {
		merged.PauseDuration = time.Duration(c.Drill.PauseDurationMS) * time.Millisecond
	}
	if c.Drill.MinPauseMS > 0 {
		merged.MinPause = time.Duration(c.Drill.MinPauseMS) * time.Millisecond
	}
	if c.Drill.MaxPauseMS > 0 {
		merged.MaxPause = time.Duration(c.Drill.MaxPauseMS) * time.Millisecond
	}
	if c.Drill.TransitionGapMS > 0 {
		merged.TransitionGap = time.Duration(c.Drill.TransitionGapMS) * time.Millisecond
	}
	if c.Drill.AdaptivePause != nil {
		merged.AdaptivePause = *c.Drill.AdaptivePause
	}

	return merged
}

// ResilientOptions converts the playback section into controller options.
// Unset intervals keep the controller defaults.
func (c *Config) ResilientOptions() []playback.ResilientOption {
	var opts []playback.ResilientOption
	if c.Playback.StallPollIntervalMS > 0 {
		opts = append(opts, playback.WithStallPollInterval(time.Duration(c.Playback.StallPollIntervalMS)*time.Millisecond))
	}
	if c.Playback.SafetyTimeoutMS > 0 {
		opts = append(opts, playback.WithSafetyTimeout(time.Duration(c.Playback.SafetyTimeoutMS)*time.Millisecond))
	}
	return opts
}

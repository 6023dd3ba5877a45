package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/vocadrill/drill-core/core/audio/synth/deepgram"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Playback.Backend != "" && !cfg.Playback.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("playback.backend %q is invalid; valid values: miniaudio, portaudio", cfg.Playback.Backend))
	}

	for field, value := range map[string]int{
		"drill.pause_duration_ms":         cfg.Drill.PauseDurationMS,
		"drill.min_pause_ms":              cfg.Drill.MinPauseMS,
		"drill.max_pause_ms":              cfg.Drill.MaxPauseMS,
		"drill.transition_gap_ms":         cfg.Drill.TransitionGapMS,
		"playback.stall_poll_interval_ms": cfg.Playback.StallPollIntervalMS,
		"playback.safety_timeout_ms":      cfg.Playback.SafetyTimeoutMS,
	} {
		if value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", field, value))
		}
	}

	if cfg.Drill.MinPauseMS > 0 && cfg.Drill.MaxPauseMS > 0 && cfg.Drill.MinPauseMS > cfg.Drill.MaxPauseMS {
		errs = append(errs, fmt.Errorf("drill.min_pause_ms %d exceeds drill.max_pause_ms %d", cfg.Drill.MinPauseMS, cfg.Drill.MaxPauseMS))
	}

	if cfg.Playback.StallPollIntervalMS > 0 && cfg.Playback.SafetyTimeoutMS > 0 &&
		cfg.Playback.StallPollIntervalMS >= cfg.Playback.SafetyTimeoutMS {
		slog.Warn("playback.stall_poll_interval_ms is not smaller than playback.safety_timeout_ms; the safety timeout will always win")
	}

	validateVoice("synthesis.voice_1", cfg.Synthesis.Voice1)
	validateVoice("synthesis.voice_2", cfg.Synthesis.Voice2)

	return errors.Join(errs...)
}

// validateVoice warns about unrecognised voices instead of failing: the
// voice list grows server-side faster than this binary is updated.
func validateVoice(field, voice string) {
	if voice == "" {
		return
	}
	if !slices.Contains(deepgram.GetAvailableVoices(), deepgram.Voice(voice)) {
		slog.Warn("unrecognised synthesis voice", "field", field, "voice", voice)
	}
}

package playback

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/vocadrill/drill-core/core/playback"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	stallsRecovered, _ = meter.Int64Counter("playback.stalls_recovered",
		metric.WithDescription("Clips force-resolved by the stall watchdog"))
	safetyTimeouts, _ = meter.Int64Counter("playback.safety_timeouts",
		metric.WithDescription("Clips force-resolved by the safety timeout"))
	preloadFailures, _ = meter.Int64Counter("playback.preload_failures",
		metric.WithDescription("Refs that could not be preloaded"))
)

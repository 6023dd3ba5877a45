package cycle

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/vocadrill/drill-core/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var itemsCompleted, _ = meter.Int64Counter("drill.items_completed",
	metric.WithDescription("Number of drill items that completed a full cycle"),
)

var phaseErrors, _ = meter.Int64Counter("drill.phase_errors",
	metric.WithDescription("Number of phase clips that failed and were advanced past"),
)

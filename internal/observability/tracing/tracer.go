package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "jobscout"

// tracer delegates to whatever provider is installed globally, including
// one installed after package init.
var tracer = otel.Tracer(instrumentationName)

// GetTracer returns the process tracer.
//
//	ctx, span := tracing.GetTracer().Start(ctx, "search.SearchAll")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}

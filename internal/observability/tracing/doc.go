// Package tracing holds the process tracer and HTTP tracing middleware.
//
// Spans go to the global OpenTelemetry provider. Without an installed
// provider they are no-ops, so callers never need to check.
package tracing

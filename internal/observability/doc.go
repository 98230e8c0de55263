// Package observability groups the logging, metrics and tracing support
// shared by the worker and its tools.
//
// Subpackages:
//   - logging: slog setup, correlation IDs and context loggers
//   - metrics: HTTP and listing inventory collectors
//   - tracing: OpenTelemetry provider setup and HTTP middleware
//
// Example usage:
//
//	import (
//	    "jobscout/internal/observability/logging"
//	    "jobscout/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started")
//
//	    metrics.UpdateListingsStored(map[string]int{"remotive": 10})
//	}
package observability

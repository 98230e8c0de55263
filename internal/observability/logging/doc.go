// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON output (default) and colored text output for local development
//   - Correlation ID propagation across one aggregation run
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "jobscout/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started", slog.String("version", "1.0"))
//	}
//
//	func runSearch(ctx context.Context) {
//	    ctx = logging.WithCorrelationID(ctx, logging.NewCorrelationID())
//	    logger := logging.WithCorrelation(ctx, slog.Default())
//	    logger.Info("search started")
//	}
package logging

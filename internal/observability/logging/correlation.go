package logging

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewCorrelationID returns a lexically sortable ID for one unit of work.
func NewCorrelationID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// WithCorrelationID stores id in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey, id)
}

// CorrelationID returns the ID stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDContextKey).(string); ok {
		return id
	}
	return ""
}

// WithCorrelation returns a logger that includes the correlation ID from ctx.
func WithCorrelation(ctx context.Context, logger *slog.Logger) *slog.Logger {
	id := CorrelationID(ctx)
	if id == "" {
		return logger
	}
	return logger.With(slog.String("correlation_id", id))
}

package report

import (
	"context"
	"errors"

	"jobscout/internal/domain/entity"
)

// ErrSinkDisabled is returned by sinks that are not configured.
var ErrSinkDisabled = errors.New("notification sink is disabled")

// Sink receives High and Critical error records.
//
// Delivery is at-most-once: the reporter never retries a failed Notify and
// never reports a sink failure back into itself.
type Sink interface {
	// Name returns a short identifier used in logs and metrics (e.g. "slack").
	Name() string

	// IsEnabled reports whether the sink is configured to receive records.
	IsEnabled() bool

	// Notify delivers one record. Implementations must respect ctx.
	Notify(ctx context.Context, record *entity.ErrorRecord) error
}

// RecoveryHandler is the hand-off point to component recovery.
type RecoveryHandler interface {
	// HasStrategy reports whether a recovery strategy is registered for component.
	HasStrategy(component string) bool

	// Recover runs recovery for the component named in record.
	Recover(ctx context.Context, record *entity.ErrorRecord)
}

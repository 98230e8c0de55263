package notifier

import (
	"context"

	"jobscout/internal/domain/entity"
)

// NoOpSink is a disabled sink. The reporter skips it, and Notify does nothing.
type NoOpSink struct{}

func (NoOpSink) Name() string    { return "noop" }
func (NoOpSink) IsEnabled() bool { return false }

func (NoOpSink) Notify(context.Context, *entity.ErrorRecord) error { return nil }

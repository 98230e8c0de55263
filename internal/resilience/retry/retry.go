// Package retry runs an operation with bounded retries, backoff delays and an
// optional circuit breaker. It is the only place in the core that sleeps.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/quartz"

	"jobscout/internal/domain/entity"
	"jobscout/internal/resilience/backoff"
	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/resilience/failure"
)

// Reporter receives every failed attempt.
type Reporter interface {
	Report(ctx context.Context, err error, component, operation string, severity entity.Severity, details map[string]any) *entity.ErrorRecord
}

// Breaker gates an attempt. *circuitbreaker.CircuitBreaker implements it.
type Breaker interface {
	Execute(fn func() (any, error)) (any, error)
}

// Call describes the operation being retried.
type Call struct {
	Component string
	Operation string
	// Timeout bounds each attempt. Zero means the attempt only ends with ctx.
	Timeout time.Duration
	// Details are copied into every reported failure.
	Details map[string]any
}

// Executor composes backoff, breaker and error reporting around an operation.
type Executor struct {
	reporter Reporter
	clock    quartz.Clock
	delay    func(attempt int, p backoff.Policy) time.Duration
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock sets the clock used for backoff sleeps.
func WithClock(clock quartz.Clock) Option {
	return func(e *Executor) { e.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithCalculator makes backoff jitter deterministic.
func WithCalculator(c *backoff.Calculator) Option {
	return func(e *Executor) { e.delay = c.Delay }
}

// NewExecutor creates an executor. A nil reporter means failures are only logged.
func NewExecutor(reporter Reporter, opts ...Option) *Executor {
	e := &Executor{
		reporter: reporter,
		clock:    quartz.NewReal(),
		delay:    backoff.Delay,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes op until it succeeds, fails with a non-retryable error, or
// policy.MaxAttempts attempts have been made. breaker may be nil.
func (e *Executor) Run(ctx context.Context, call Call, policy backoff.Policy, breaker Breaker, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, call, policy, breaker, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is Run for operations that return a value.
func Do[T any](ctx context.Context, e *Executor, call Call, policy backoff.Policy, breaker Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := max(policy.MaxAttempts, 1)
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry aborted: %w", err)
		}

		v, err := runAttempt(ctx, call, breaker, op)
		if err == nil {
			attemptsTotal.WithLabelValues(call.Component, "success").Inc()
			if attempt > 0 {
				e.logger.Info("operation succeeded after retry",
					slog.String("component", call.Component),
					slog.String("operation", call.Operation),
					slog.Int("attempt", attempt+1))
			}
			return v, nil
		}
		lastErr = err

		kind := failure.Classify(err)
		retryable := kind.Retryable() && !errors.Is(err, circuitbreaker.ErrCircuitOpen) && ctx.Err() == nil
		retried := retryable && attempt+1 < maxAttempts
		e.report(ctx, call, err, kind, attempt, maxAttempts, retried, retryable)

		if !retryable {
			attemptsTotal.WithLabelValues(call.Component, "fatal").Inc()
			return zero, err
		}
		attemptsTotal.WithLabelValues(call.Component, "retryable").Inc()
		if !retried {
			break
		}

		delay := e.delay(attempt, policy)
		e.logger.Warn("operation failed, retrying",
			slog.String("component", call.Component),
			slog.String("operation", call.Operation),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("delay", delay),
			slog.String("kind", kind.String()),
			slog.Any("error", err))

		if err := e.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry aborted: %w", errors.Join(err, lastErr))
		}
	}

	exhaustedTotal.WithLabelValues(call.Component).Inc()
	return zero, fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, lastErr)
}

// runAttempt runs one attempt under the per-attempt timeout and the breaker.
func runAttempt[T any](ctx context.Context, call Call, breaker Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	run := func() (T, error) {
		if call.Timeout <= 0 {
			return op(ctx)
		}
		return withTimeout(ctx, call, op)
	}
	if breaker == nil {
		return run()
	}

	v, err := breaker.Execute(func() (any, error) {
		return run()
	})
	if err != nil {
		return zero, err
	}
	typed, _ := v.(T)
	return typed, nil
}

type result[T any] struct {
	v   T
	err error
}

// withTimeout abandons op once the attempt deadline passes, even if op ignores ctx.
func withTimeout[T any](ctx context.Context, call Call, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	actx, cancel := context.WithTimeout(ctx, call.Timeout)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := op(actx)
		done <- result[T]{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return zero, timeoutError(call, r.err)
		}
		return r.v, r.err
	case <-actx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, timeoutError(call, context.DeadlineExceeded)
	}
}

func timeoutError(call Call, err error) error {
	return failure.New(failure.Timeout, fmt.Errorf("%s %s timed out after %v: %w", call.Component, call.Operation, call.Timeout, err))
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := e.clock.NewTimer(d, "retry", "backoff")
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) report(ctx context.Context, call Call, err error, kind failure.Kind, attempt, maxAttempts int, retried, retryable bool) {
	details := make(map[string]any, len(call.Details)+5)
	for k, v := range call.Details {
		details[k] = v
	}
	details["attempt"] = attempt + 1
	details["max_attempts"] = maxAttempts
	details["retried"] = retried
	details["retryable"] = retryable
	details["kind"] = kind.String()

	if e.reporter == nil {
		e.logger.Warn("operation failed",
			slog.String("component", call.Component),
			slog.String("operation", call.Operation),
			slog.Int("attempt", attempt+1),
			slog.Bool("retried", retried),
			slog.Any("error", err))
		return
	}
	e.reporter.Report(ctx, err, call.Component, call.Operation, failure.SeverityOf(err), details)
}

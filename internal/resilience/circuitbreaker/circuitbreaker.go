// Package circuitbreaker gates calls to a failing dependency.
// It uses the github.com/sony/gobreaker library for the state machine and keeps
// its own failure bookkeeping for status reporting.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"jobscout/internal/resilience/failure"
)

// ErrCircuitOpen is matched by every rejection caused by an open or half-open breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// errTripped is the synthetic failure used by Trip.
var errTripped = errors.New("circuit breaker tripped manually")

// State is the state of a breaker.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns "closed", "half-open" or "open".
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown state: %d", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

// OpenError is returned when a call is rejected without invoking the operation.
type OpenError struct {
	Name  string
	State State
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

// Is reports whether target is ErrCircuitOpen.
func (e *OpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// FailureKind implements failure.Kinder.
func (e *OpenError) FailureKind() failure.Kind {
	return failure.ServiceUnavailable
}

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name is the dependency name used for logging, metrics and lookups
	Name string

	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold uint32

	// RecoveryTimeout is how long the circuit stays open before a trial call is admitted
	RecoveryTimeout time.Duration
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("circuit breaker name is required")
	}
	if c.FailureThreshold == 0 {
		return fmt.Errorf("circuit breaker %q: failure threshold must be positive", c.Name)
	}
	if c.RecoveryTimeout <= 0 {
		return fmt.Errorf("circuit breaker %q: recovery timeout must be positive, got %v", c.Name, c.RecoveryTimeout)
	}
	return nil
}

// DefaultConfig returns a default configuration for circuit breakers.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// DatabaseConfig opens after 3 consecutive failures and probes again after 30 seconds.
func DatabaseConfig() Config {
	return Config{
		Name:             "database",
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

// ExternalAPIConfig returns the configuration used for job source APIs.
func ExternalAPIConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// CacheConfig returns the configuration used for the result cache.
func CacheConfig() Config {
	return Config{
		Name:             "cache",
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

// BreakerStatus is a point-in-time snapshot of a breaker.
type BreakerStatus struct {
	Name             string        `json:"name"`
	State            State         `json:"state"`
	FailureCount     uint32        `json:"failure_count"`
	LastFailureTime  *time.Time    `json:"last_failure_time,omitempty"`
	FailureThreshold uint32        `json:"failure_threshold"`
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`
}

// CircuitBreaker wraps gobreaker.CircuitBreaker with failure bookkeeping.
//
// The half-open state admits a single trial call (MaxRequests = 1); concurrent
// callers are rejected with an *OpenError until the trial resolves.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	cfg     Config
	logger  *slog.Logger

	mu           sync.Mutex
	failureCount uint32
	lastFailure  time.Time
}

// New creates a new circuit breaker with the given configuration.
func New(cfg Config, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	cb := &CircuitBreaker{cfg: cfg, logger: logger}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", fromGobreaker(from).String()),
				slog.String("to", fromGobreaker(to).String()))
			recordTransition(name, fromGobreaker(from), fromGobreaker(to))
		},
	}
	cb.breaker = gobreaker.NewCircuitBreaker(settings)
	recordState(cfg.Name, StateClosed)
	return cb
}

// canceledTrial marks a half-open trial whose caller canceled. It counts
// as a failure so the circuit reopens instead of closing untested.
type canceledTrial struct {
	err error
}

func (c *canceledTrial) Error() string { return c.err.Error() }
func (c *canceledTrial) Unwrap() error { return c.err }

// countsAsSuccess keeps caller cancellation in the closed state from being
// charged to the dependency. It must agree with the bookkeeping in Execute.
func countsAsSuccess(err error) bool {
	var trial *canceledTrial
	if errors.As(err, &trial) {
		return false
	}
	return err == nil || errors.Is(err, context.Canceled)
}

// Execute runs fn through the circuit breaker.
// If the circuit rejects the call, fn is not invoked and an *OpenError is returned.
//
// A canceled call resets the failure count in the closed state, like a
// success, and fails a half-open trial. Either way FailureCount tracks the
// consecutive failures gobreaker trips on.
func (cb *CircuitBreaker) Execute(fn func() (any, error)) (any, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		trial := cb.breaker.State() == gobreaker.StateHalfOpen
		v, err := fn()
		switch {
		case err == nil:
			cb.recordSuccess()
		case errors.Is(err, context.Canceled) && trial:
			cb.recordFailure()
			return v, &canceledTrial{err: err}
		case errors.Is(err, context.Canceled):
			cb.recordSuccess()
		default:
			cb.recordFailure()
		}
		return v, err
	})
	var trial *canceledTrial
	if errors.As(err, &trial) {
		err = trial.err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		rejectedTotal.WithLabelValues(cb.cfg.Name).Inc()
		return nil, &OpenError{Name: cb.cfg.Name, State: cb.State()}
	}
	return result, err
}

// Do runs fn through cb and returns its typed result.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	v, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	cb.failureCount = 0
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	cb.failureCount++
	cb.lastFailure = time.Now()
	cb.mu.Unlock()
}

// Trip forces the circuit open by feeding it synthetic failures.
// It is a no-op when the circuit is already open.
func (cb *CircuitBreaker) Trip() bool {
	for i := uint32(0); i <= cb.cfg.FailureThreshold && !cb.IsOpen(); i++ {
		_, _ = cb.Execute(func() (any, error) {
			return nil, errTripped
		})
	}
	return cb.IsOpen()
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	return fromGobreaker(cb.breaker.State())
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// Config returns the configuration the breaker was created with.
func (cb *CircuitBreaker) Config() Config {
	return cb.cfg
}

// IsOpen returns true if the circuit breaker is in the open state.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Status returns a snapshot of the breaker.
func (cb *CircuitBreaker) Status() BreakerStatus {
	state := cb.State()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := BreakerStatus{
		Name:             cb.cfg.Name,
		State:            state,
		FailureCount:     cb.failureCount,
		FailureThreshold: cb.cfg.FailureThreshold,
		RecoveryTimeout:  cb.cfg.RecoveryTimeout,
	}
	if !cb.lastFailure.IsZero() {
		t := cb.lastFailure
		status.LastFailureTime = &t
	}
	return status
}

// Package recovery maps component failures to ordered recovery actions and
// tracks which components, and therefore the system, are degraded.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"

	"jobscout/internal/domain/entity"
	"jobscout/internal/resilience/backoff"
	"jobscout/internal/resilience/failure"
	"jobscout/internal/resilience/retry"
)

var (
	// ErrComponentNotDegraded is returned when restoring a component that is not degraded.
	ErrComponentNotDegraded = errors.New("component is not degraded")
	// ErrUnknownComponent is returned for components without a strategy.
	ErrUnknownComponent = errors.New("unknown component")

	errNoRestarter = errors.New("no restart procedure registered")
	errNoProbe     = errors.New("no probe registered")
	errNoTripper   = errors.New("no circuit breaker registry configured")
)

// Restarter reinitializes a component, e.g. by reconnecting to a database.
type Restarter interface {
	Restart(ctx context.Context) error
}

// RestarterFunc adapts a function to Restarter.
type RestarterFunc func(ctx context.Context) error

func (f RestarterFunc) Restart(ctx context.Context) error { return f(ctx) }

// Probe re-checks a component; used by RetryOperation.
type Probe func(ctx context.Context) error

// FallbackHandler switches a component to its fallback behavior.
type FallbackHandler func(ctx context.Context) error

// Tripper opens a named circuit breaker. *circuitbreaker.Registry implements it.
type Tripper interface {
	Trip(name string) error
}

// Alerter forwards administrator alerts.
type Alerter interface {
	Alert(ctx context.Context, component string, details map[string]any) error
}

// Mode is the process-wide operating mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeDegraded
	ModeMaintenance
	ModeEmergency
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeDegraded:
		return "degraded"
	case ModeMaintenance:
		return "maintenance"
	case ModeEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// State is the recovery state of a single component.
type State int

const (
	StateHealthy State = iota
	StateRecovering
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateRecovering:
		return "recovering"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Status is the result of HandleFailure.
type Status string

const (
	StatusNoStrategy     Status = "no_strategy"
	StatusNoTriggerMatch Status = "no_trigger_match"
	StatusCooldownActive Status = "cooldown_active"
	StatusRecovered      Status = "recovered"
	StatusExhausted      Status = "exhausted"
)

// ActionResult records one executed action.
type ActionResult struct {
	Action  Action `json:"action"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Outcome lists every action attempted for one failure.
type Outcome struct {
	Component string         `json:"component"`
	Kind      failure.Kind   `json:"kind"`
	Status    Status         `json:"status"`
	Actions   []ActionResult `json:"actions,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Success reports whether an action succeeded.
func (o Outcome) Success() bool { return o.Status == StatusRecovered }

// SystemStatus is a snapshot for health endpoints.
type SystemStatus struct {
	Mode               Mode                 `json:"mode"`
	DegradedComponents map[string]time.Time `json:"degraded_components"`
	RecoveryAttempts   map[string]int       `json:"recovery_attempts"`
	Components         map[string]State     `json:"components"`
	Timestamp          time.Time            `json:"timestamp"`
}

// Coordinator runs recovery strategies. All state is guarded by mu; actions
// run outside the lock.
type Coordinator struct {
	clock       quartz.Clock
	logger      *slog.Logger
	executor    *retry.Executor
	retryPolicy backoff.Policy
	probeTime   time.Duration
	tripper     Tripper
	alerter     Alerter

	mu         sync.Mutex
	mode       Mode
	strategies map[string]Strategy
	attempts   map[string][]time.Time
	degraded   map[string]time.Time
	states     map[string]State
	restarters map[string]Restarter
	probes     map[string]Probe
	fallbacks  map[string]FallbackHandler
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used for cooldowns and probe delays.
func WithClock(clock quartz.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithTripper sets the breaker registry used by ActivateCircuitBreaker.
func WithTripper(t Tripper) Option {
	return func(c *Coordinator) { c.tripper = t }
}

// WithAlerter forwards AlertAdministrators to a.
func WithAlerter(a Alerter) Option {
	return func(c *Coordinator) { c.alerter = a }
}

// WithRetryPolicy overrides the RetryOperation policy.
func WithRetryPolicy(p backoff.Policy) Option {
	return func(c *Coordinator) { c.retryPolicy = p }
}

// WithProbeTimeout bounds each probe attempt.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.probeTime = d }
}

// RetryOperationPolicy is the bounded single retry used by RetryOperation.
func RetryOperationPolicy() backoff.Policy {
	return backoff.Policy{
		MaxAttempts: 2,
		Strategy:    backoff.Fixed,
		BaseDelay:   time.Second,
		MaxDelay:    time.Second,
		Multiplier:  1,
	}
}

// NewCoordinator creates a coordinator without strategies.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		clock:       quartz.NewReal(),
		logger:      slog.Default(),
		retryPolicy: RetryOperationPolicy(),
		probeTime:   10 * time.Second,
		strategies:  make(map[string]Strategy),
		attempts:    make(map[string][]time.Time),
		degraded:    make(map[string]time.Time),
		states:      make(map[string]State),
		restarters:  make(map[string]Restarter),
		probes:      make(map[string]Probe),
		fallbacks:   make(map[string]FallbackHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Probe failures are logged here; reporting them would re-enter recovery.
	c.executor = retry.NewExecutor(nil, retry.WithClock(c.clock), retry.WithLogger(c.logger))
	recordMode(c.mode)
	return c
}

// AddStrategy registers or replaces the strategy for s.Component.
func (c *Coordinator) AddStrategy(s Strategy) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies[s.Component] = s
	if _, ok := c.states[s.Component]; !ok {
		c.states[s.Component] = StateHealthy
	}
	return nil
}

// AddRestarter registers the restart procedure for component.
func (c *Coordinator) AddRestarter(component string, r Restarter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restarters[component] = r
}

// AddProbe registers the probe RetryOperation runs for component.
func (c *Coordinator) AddProbe(component string, p Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[component] = p
}

// AddFallbackHandler registers the fallback for component.
func (c *Coordinator) AddFallbackHandler(component string, h FallbackHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbacks[component] = h
}

// HasStrategy reports whether a strategy exists for component.
func (c *Coordinator) HasStrategy(component string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.strategies[component]
	return ok
}

// Recover runs HandleFailure for a reported record.
func (c *Coordinator) Recover(ctx context.Context, rec *entity.ErrorRecord) {
	kind, err := failure.ParseKind(rec.Kind)
	if err != nil {
		kind = failure.Unknown
	}
	details := make(map[string]any, len(rec.Details)+2)
	for k, v := range rec.Details {
		details[k] = v
	}
	details["error_id"] = rec.ID
	details["operation"] = rec.Operation
	c.HandleFailure(ctx, rec.Component, kind, details)
}

// HandleFailure runs the strategy for component if kind triggers it and the
// component is not in cooldown. Actions run in order until one succeeds.
func (c *Coordinator) HandleFailure(ctx context.Context, component string, kind failure.Kind, details map[string]any) Outcome {
	logger := c.logger.With(slog.String("component", component), slog.String("kind", kind.String()))
	outcome := Outcome{Component: component, Kind: kind}

	c.mu.Lock()
	now := c.clock.Now()
	outcome.Timestamp = now
	strategy, ok := c.strategies[component]
	switch {
	case !ok:
		outcome.Status = StatusNoStrategy
	case !strategy.Triggered(kind):
		outcome.Status = StatusNoTriggerMatch
	default:
		recent := pruneAttempts(c.attempts[component], now.Add(-strategy.Cooldown))
		if len(recent) >= strategy.MaxAttempts {
			c.attempts[component] = recent
			outcome.Status = StatusCooldownActive
		} else {
			c.attempts[component] = append(recent, now)
			if c.states[component] != StateDegraded {
				c.states[component] = StateRecovering
			}
		}
	}
	c.mu.Unlock()

	if outcome.Status != "" {
		logger.Debug("recovery skipped", slog.String("status", string(outcome.Status)))
		outcomesTotal.WithLabelValues(component, string(outcome.Status)).Inc()
		return outcome
	}

	logger.Info("recovering component", slog.Any("details", details))
	outcome.Status = StatusExhausted
	for _, action := range strategy.Actions {
		res := c.runAction(ctx, component, action, details)
		outcome.Actions = append(outcome.Actions, res)
		if res.Success {
			outcome.Status = StatusRecovered
			logger.Info("recovery action succeeded", slog.String("action", action.String()))
			break
		}
	}

	c.mu.Lock()
	switch {
	case c.isDegradedLocked(component):
		c.states[component] = StateDegraded
	case outcome.Status == StatusRecovered:
		c.states[component] = StateHealthy
	}
	c.mu.Unlock()

	if outcome.Status == StatusExhausted {
		logger.Error("recovery exhausted", slog.Int("actions", len(outcome.Actions)))
	}
	outcomesTotal.WithLabelValues(component, string(outcome.Status)).Inc()
	return outcome
}

func pruneAttempts(attempts []time.Time, cutoff time.Time) []time.Time {
	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}

// runAction executes one action. Errors and panics become a failed result.
func (c *Coordinator) runAction(ctx context.Context, component string, action Action, details map[string]any) (res ActionResult) {
	res.Action = action
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
			c.logger.Error("panic in recovery action",
				slog.String("component", component),
				slog.String("action", action.String()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
		actionsTotal.WithLabelValues(component, action.String(), resultLabel(res.Success)).Inc()
	}()

	detail, err := c.execute(ctx, component, action, details)
	if err != nil {
		res.Error = err.Error()
		c.logger.Warn("recovery action failed",
			slog.String("component", component),
			slog.String("action", action.String()),
			slog.Any("error", err))
		return res
	}
	res.Success = true
	res.Detail = detail
	return res
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (c *Coordinator) execute(ctx context.Context, component string, action Action, details map[string]any) (string, error) {
	switch action {
	case RestartComponent:
		if err := c.restart(ctx, component); err != nil {
			return "", err
		}
		return "component restarted", nil

	case EnableFallbackMode:
		c.mu.Lock()
		h := c.fallbacks[component]
		c.mu.Unlock()
		detail := "default fallback"
		if h != nil {
			if err := h(ctx); err != nil {
				return "", fmt.Errorf("fallback: %w", err)
			}
			detail = "fallback enabled"
		}
		c.markDegraded(component)
		return detail, nil

	case ActivateCircuitBreaker:
		if c.tripper == nil {
			return "", errNoTripper
		}
		if err := c.tripper.Trip(component); err != nil {
			return "", fmt.Errorf("trip breaker: %w", err)
		}
		return "circuit breaker opened", nil

	case RetryOperation:
		c.mu.Lock()
		probe := c.probes[component]
		c.mu.Unlock()
		if probe == nil {
			return "", errNoProbe
		}
		call := retry.Call{Component: component, Operation: "recovery_probe", Timeout: c.probeTime}
		if err := c.executor.Run(ctx, call, c.retryPolicy, nil, probe); err != nil {
			return "", err
		}
		return "operation retried", nil

	case EnableGracefulDegradation:
		c.markDegraded(component)
		return "graceful degradation enabled", nil

	case AlertAdministrators:
		c.logger.Error("administrator alert: component requires attention",
			slog.String("component", component),
			slog.Any("details", details))
		if c.alerter != nil {
			if err := c.alerter.Alert(ctx, component, details); err != nil {
				c.logger.Warn("alert delivery failed", slog.String("component", component), slog.Any("error", err))
			}
		}
		return "administrators alerted", nil

	default:
		return "", fmt.Errorf("unsupported recovery action %v", action)
	}
}

func (c *Coordinator) restart(ctx context.Context, component string) error {
	c.mu.Lock()
	r := c.restarters[component]
	c.mu.Unlock()
	if r == nil {
		return errNoRestarter
	}
	c.logger.Info("restarting component", slog.String("component", component))
	if err := r.Restart(ctx); err != nil {
		return fmt.Errorf("restart %s: %w", component, err)
	}
	return nil
}

// markDegraded adds component to the degraded set and moves a Normal system
// to Degraded. Maintenance and Emergency are left alone.
func (c *Coordinator) markDegraded(component string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.degraded[component]; !ok {
		c.degraded[component] = c.clock.Now()
	}
	c.states[component] = StateDegraded
	degradedComponents.Set(float64(len(c.degraded)))
	if c.mode == ModeNormal {
		c.mode = ModeDegraded
		recordMode(c.mode)
		c.logger.Warn("system entering degraded mode", slog.String("component", component))
	}
}

func (c *Coordinator) isDegradedLocked(component string) bool {
	_, ok := c.degraded[component]
	return ok
}

// RestoreComponent restarts a degraded component. A component without a
// restarter is restored as is. When the last degraded component is
// restored, a Degraded system returns to Normal.
func (c *Coordinator) RestoreComponent(ctx context.Context, component string) error {
	c.mu.Lock()
	_, degraded := c.degraded[component]
	r := c.restarters[component]
	c.mu.Unlock()
	if !degraded {
		return fmt.Errorf("restore %s: %w", component, ErrComponentNotDegraded)
	}

	if r != nil {
		if err := c.restart(ctx, component); err != nil {
			c.logger.Warn("component restore failed", slog.String("component", component), slog.Any("error", err))
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.degraded, component)
	c.states[component] = StateHealthy
	degradedComponents.Set(float64(len(c.degraded)))
	c.logger.Info("component restored", slog.String("component", component))
	if len(c.degraded) == 0 && c.mode == ModeDegraded {
		c.mode = ModeNormal
		recordMode(c.mode)
		c.logger.Info("system restored to normal mode")
	}
	return nil
}

// RestoreDegraded tries to restore every degraded component and returns the
// names that were restored.
func (c *Coordinator) RestoreDegraded(ctx context.Context) []string {
	c.mu.Lock()
	names := make([]string, 0, len(c.degraded))
	for name := range c.degraded {
		names = append(names, name)
	}
	c.mu.Unlock()
	sort.Strings(names)

	var restored []string
	for _, name := range names {
		if err := c.RestoreComponent(ctx, name); err == nil {
			restored = append(restored, name)
		}
	}
	return restored
}

// SetMode sets the system mode. Use it for Maintenance and Emergency;
// Degraded and Normal follow the degraded set.
func (c *Coordinator) SetMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.mode
	c.mode = mode
	recordMode(mode)
	c.logger.Warn("system mode changed", slog.String("from", prev.String()), slog.String("to", mode.String()))
}

// Mode returns the system mode.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// ComponentState returns the recovery state of component.
func (c *Coordinator) ComponentState(component string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[component]; ok {
		return s, nil
	}
	return StateHealthy, fmt.Errorf("component %q: %w", component, ErrUnknownComponent)
}

// SystemStatus returns a snapshot of the mode, degraded set and attempt counts.
func (c *Coordinator) SystemStatus() SystemStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := SystemStatus{
		Mode:               c.mode,
		DegradedComponents: make(map[string]time.Time, len(c.degraded)),
		RecoveryAttempts:   make(map[string]int, len(c.attempts)),
		Components:         make(map[string]State, len(c.states)),
		Timestamp:          c.clock.Now(),
	}
	for name, at := range c.degraded {
		status.DegradedComponents[name] = at
	}
	for name, attempts := range c.attempts {
		status.RecoveryAttempts[name] = len(attempts)
	}
	for name, s := range c.states {
		status.Components[name] = s
	}
	return status
}

// Package report captures structured failure records, keeps a bounded history
// of them, and fans High and Critical records out to notification sinks.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"jobscout/internal/domain/entity"
	"jobscout/internal/observability/logging"
	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/resilience/failure"
)

// Config bounds the history and the sink fan-out.
type Config struct {
	// MaxAge is the retention horizon of the in-memory history.
	MaxAge time.Duration
	// MaxEntries caps the history size; the oldest records are evicted first.
	MaxEntries int
	// SinkTimeout bounds a single Notify call.
	SinkTimeout time.Duration
	// MaxConcurrentSinks bounds in-flight Notify calls across all records.
	MaxConcurrentSinks int
	// SinkFailureThreshold consecutive failures pause a sink for SinkCooldown.
	SinkFailureThreshold int
	SinkCooldown         time.Duration
}

// DefaultConfig returns the default reporter configuration (7 day horizon).
func DefaultConfig() Config {
	return Config{
		MaxAge:               168 * time.Hour,
		MaxEntries:           1000,
		SinkTimeout:          30 * time.Second,
		MaxConcurrentSinks:   10,
		SinkFailureThreshold: 5,
		SinkCooldown:         5 * time.Minute,
	}
}

const workerPoolTimeout = 5 * time.Second

// CircuitStatusProvider exposes breaker snapshots for statistics.
// *circuitbreaker.Registry implements it.
type CircuitStatusProvider interface {
	Status() map[string]circuitbreaker.BreakerStatus
}

// SinkHealthStatus represents the health of a notification sink.
type SinkHealthStatus struct {
	Name          string     `json:"name"`
	Enabled       bool       `json:"enabled"`
	Paused        bool       `json:"paused"`
	PausedUntil   *time.Time `json:"paused_until,omitempty"`
	FailureStreak int        `json:"failure_streak"`
}

// sinkHealth pauses a sink after repeated failures
type sinkHealth struct {
	mu                  sync.Mutex
	consecutiveFailures int
	pausedUntil         time.Time
}

// Service is the error reporter.
type Service struct {
	cfg     Config
	clock   quartz.Clock
	logger  *slog.Logger
	history *history

	mu         sync.RWMutex
	sinks      []Sink
	sinkHealth map[string]*sinkHealth
	recovery   RecoveryHandler
	circuits   CircuitStatusProvider

	workerPool     chan struct{}
	wg             sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for timestamps and retention.
func WithClock(clock quartz.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCircuitStatus includes breaker snapshots in Statistics.
func WithCircuitStatus(p CircuitStatusProvider) Option {
	return func(s *Service) { s.circuits = p }
}

// NewService creates an error reporter.
func NewService(cfg Config, opts ...Option) *Service {
	if cfg.MaxConcurrentSinks <= 0 {
		cfg.MaxConcurrentSinks = 1
	}
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:            cfg,
		clock:          quartz.NewReal(),
		logger:         slog.Default(),
		history:        newHistory(cfg.MaxAge, cfg.MaxEntries),
		sinkHealth:     make(map[string]*sinkHealth),
		workerPool:     make(chan struct{}, cfg.MaxConcurrentSinks),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSink registers a notification sink.
func (s *Service) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
	s.sinkHealth[sink.Name()] = &sinkHealth{}
	s.logger.Info("error sink registered", slog.String("sink", sink.Name()), slog.Bool("enabled", sink.IsEnabled()))
}

// SetRecoveryHandler sets the component recovery hand-off.
func (s *Service) SetRecoveryHandler(h RecoveryHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recovery = h
}

// ReportError reports err with the severity derived from its failure kind.
func (s *Service) ReportError(ctx context.Context, err error, component, operation string, details map[string]any) *entity.ErrorRecord {
	return s.Report(ctx, err, component, operation, failure.SeverityOf(err), details)
}

// Report captures err as an ErrorRecord, logs it, and returns it.
//
// High and Critical records are sent to every enabled sink in the background.
// If a recovery strategy exists for component, recovery runs in the background
// too, except for records whose details mark the operation as retried: only
// the final attempt of a retry loop starts recovery. Neither blocks the
// caller. After Shutdown the record is still kept and logged.
func (s *Service) Report(ctx context.Context, err error, component, operation string, severity entity.Severity, details map[string]any) *entity.ErrorRecord {
	rec := s.newRecord(ctx, err, component, operation, severity, details)
	s.history.append(rec, rec.Timestamp)
	errorsReportedTotal.WithLabelValues(component, severity.String(), rec.Kind).Inc()
	s.log(rec)

	if rec.Notifiable() {
		s.fanOut(rec)
	}

	s.mu.RLock()
	handler := s.recovery
	s.mu.RUnlock()
	if handler == nil || willRetry(rec) || !handler.HasStrategy(component) {
		return rec
	}
	if s.startTask() {
		go s.recover(context.WithoutCancel(ctx), handler, rec)
	}
	return rec
}

// willRetry reports whether the failed operation is about to be attempted
// again.
func willRetry(rec *entity.ErrorRecord) bool {
	retried, _ := rec.Details["retried"].(bool)
	return retried
}

// startTask registers one background goroutine. It returns false once
// Shutdown has begun.
func (s *Service) startTask() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.shutdownCtx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Service) newRecord(ctx context.Context, err error, component, operation string, severity entity.Severity, details map[string]any) *entity.ErrorRecord {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	copied := make(map[string]any, len(details))
	for k, v := range details {
		copied[k] = v
	}

	rec := &entity.ErrorRecord{
		ID:            uuid.New().String(),
		Timestamp:     s.clock.Now(),
		Severity:      severity,
		Component:     component,
		Operation:     operation,
		Kind:          failure.Classify(err).String(),
		Message:       msg,
		Details:       copied,
		CorrelationID: logging.CorrelationID(ctx),
	}
	if severity >= entity.SeverityHigh {
		rec.StackTrace = string(debug.Stack())
	}
	return rec
}

func (s *Service) log(rec *entity.ErrorRecord) {
	level := slog.LevelWarn
	switch rec.Severity {
	case entity.SeverityLow:
		level = slog.LevelInfo
	case entity.SeverityHigh, entity.SeverityCritical:
		level = slog.LevelError
	}
	s.logger.LogAttrs(context.Background(), level, "error reported",
		slog.String("error_id", rec.ID),
		slog.String("component", rec.Component),
		slog.String("operation", rec.Operation),
		slog.String("severity", rec.Severity.String()),
		slog.String("kind", rec.Kind),
		slog.String("message", rec.Message),
		slog.String("correlation_id", rec.CorrelationID),
		slog.Any("details", rec.Details))
}

// LogOutcome logs the result of a component call without creating a record.
func (s *Service) LogOutcome(ctx context.Context, component, operation string, err error, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("component", component),
		slog.String("operation", operation),
		slog.String("correlation_id", logging.CorrelationID(ctx)))

	if err != nil {
		outcomesTotal.WithLabelValues(component, "failure").Inc()
		attrs = append(attrs, slog.String("kind", failure.Classify(err).String()), slog.Any("error", err))
		s.logger.LogAttrs(ctx, slog.LevelWarn, "component call failed", attrs...)
		return
	}
	outcomesTotal.WithLabelValues(component, "success").Inc()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "component call succeeded", attrs...)
}

func (s *Service) recover(ctx context.Context, handler RecoveryHandler, rec *entity.ErrorRecord) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in recovery handler",
				slog.String("component", rec.Component),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	handler.Recover(ctx, rec)
}

// fanOut starts one goroutine per enabled sink.
func (s *Service) fanOut(rec *entity.ErrorRecord) {
	s.mu.RLock()
	sinks := append([]Sink(nil), s.sinks...)
	s.mu.RUnlock()

	for _, sink := range sinks {
		if !sink.IsEnabled() {
			continue
		}
		if !s.startTask() {
			sinkDroppedTotal.WithLabelValues(sink.Name(), "shutdown").Inc()
			continue
		}
		go s.notifySink(sink, rec)
	}
}

// notifySink delivers rec to one sink. Failures are logged, never reported.
func (s *Service) notifySink(sink Sink, rec *entity.ErrorRecord) {
	defer s.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			sinkDroppedTotal.WithLabelValues(sink.Name(), "panic").Inc()
			s.logger.Error("panic in error sink",
				slog.String("error_id", rec.ID),
				slog.String("sink", sink.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	poolTimer := s.clock.NewTimer(workerPoolTimeout, "report", "pool")
	defer poolTimer.Stop()
	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }()
	case <-poolTimer.C:
		s.logger.Warn("error notification dropped: worker pool full",
			slog.String("error_id", rec.ID),
			slog.String("sink", sink.Name()))
		sinkDroppedTotal.WithLabelValues(sink.Name(), "pool_full").Inc()
		return
	case <-s.shutdownCtx.Done():
		return
	}

	health := s.getSinkHealth(sink.Name())
	health.mu.Lock()
	if s.clock.Now().Before(health.pausedUntil) {
		pausedUntil := health.pausedUntil
		health.mu.Unlock()
		s.logger.Warn("error sink paused after repeated failures",
			slog.String("error_id", rec.ID),
			slog.String("sink", sink.Name()),
			slog.Time("paused_until", pausedUntil))
		sinkDroppedTotal.WithLabelValues(sink.Name(), "cooldown").Inc()
		return
	}
	health.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.shutdownCtx, s.cfg.SinkTimeout)
	defer cancel()

	start := s.clock.Now()
	err := sink.Notify(ctx, rec)
	duration := s.clock.Since(start)
	recordSinkResult(sink.Name(), err, duration)

	health.mu.Lock()
	if err != nil {
		health.consecutiveFailures++
		if s.cfg.SinkFailureThreshold > 0 && health.consecutiveFailures >= s.cfg.SinkFailureThreshold {
			health.pausedUntil = s.clock.Now().Add(s.cfg.SinkCooldown)
			s.logger.Error("error sink paused",
				slog.String("sink", sink.Name()),
				slog.Int("consecutive_failures", health.consecutiveFailures))
		}
	} else {
		health.consecutiveFailures = 0
	}
	health.mu.Unlock()

	if err != nil {
		s.logger.Warn("error sink notification failed",
			slog.String("error_id", rec.ID),
			slog.String("sink", sink.Name()),
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
		return
	}
	s.logger.Info("error sink notified",
		slog.String("error_id", rec.ID),
		slog.String("sink", sink.Name()),
		slog.Duration("send_duration", duration))
}

func (s *Service) getSinkHealth(name string) *sinkHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sinkHealth[name]
}

// SinkHealth returns the health of every registered sink.
func (s *Service) SinkHealth() []SinkHealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	statuses := make([]SinkHealthStatus, 0, len(s.sinks))
	for _, sink := range s.sinks {
		health := s.sinkHealth[sink.Name()]
		health.mu.Lock()
		status := SinkHealthStatus{
			Name:          sink.Name(),
			Enabled:       sink.IsEnabled(),
			FailureStreak: health.consecutiveFailures,
		}
		if now.Before(health.pausedUntil) {
			until := health.pausedUntil
			status.Paused = true
			status.PausedUntil = &until
		}
		health.mu.Unlock()
		statuses = append(statuses, status)
	}
	return statuses
}

// ComponentStatistics summarizes the records of one component.
type ComponentStatistics struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
}

// Statistics summarizes the records reported within a time window.
type Statistics struct {
	Window               string                                  `json:"window"`
	TotalErrors          int                                     `json:"total_errors"`
	ByComponent          map[string]ComponentStatistics          `json:"by_component"`
	BySeverity           map[string]int                          `json:"by_severity"`
	ByKind               map[string]int                          `json:"by_kind"`
	CircuitBreakerStatus map[string]circuitbreaker.BreakerStatus `json:"circuit_breaker_status,omitempty"`
}

// Statistics returns counts for the records reported during the last window.
func (s *Service) Statistics(window time.Duration) Statistics {
	records := s.history.since(s.clock.Now().Add(-window))

	stats := Statistics{
		Window:      window.String(),
		TotalErrors: len(records),
		ByComponent: make(map[string]ComponentStatistics),
		BySeverity:  make(map[string]int),
		ByKind:      make(map[string]int),
	}
	for _, r := range records {
		sev := r.Severity.String()
		cs, ok := stats.ByComponent[r.Component]
		if !ok {
			cs = ComponentStatistics{BySeverity: make(map[string]int)}
		}
		cs.Total++
		cs.BySeverity[sev]++
		stats.ByComponent[r.Component] = cs
		stats.BySeverity[sev]++
		stats.ByKind[r.Kind]++
	}
	if s.circuits != nil {
		stats.CircuitBreakerStatus = s.circuits.Status()
	}
	return stats
}

// History returns up to limit records, newest first. limit <= 0 returns all.
func (s *Service) History(limit int) []*entity.ErrorRecord {
	return s.history.latest(limit)
}

// Components returns the components with records in the history, sorted.
func (s *Service) Components() []string {
	seen := make(map[string]struct{})
	for _, r := range s.history.latest(0) {
		seen[r.Component] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Cleanup drops records older than olderThan and returns how many were removed.
func (s *Service) Cleanup(olderThan time.Duration) int {
	removed := s.history.cleanup(s.clock.Now().Add(-olderThan))
	s.logger.Info("error history cleaned up",
		slog.Int("removed", removed),
		slog.Int("remaining", s.history.len()),
		slog.String("older_than", olderThan.String()))
	return removed
}

// Shutdown waits for in-flight sink notifications and recovery hand-offs.
func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down error reporter")
	s.mu.Lock()
	s.shutdownCancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("error reporter shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("error reporter shutdown: %w", ctx.Err())
	}
}

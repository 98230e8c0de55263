package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"jobscout/internal/observability/logging"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules. Each run gets its own
// timeout, correlation ID and metrics; a run still in progress when its
// next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	metrics *WorkerMetrics
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler evaluating schedules in loc.
// metrics may be nil.
func NewScheduler(loc *time.Location, metrics *WorkerMetrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		metrics: metrics,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job under name.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { _ = s.Run(name, timeout, job) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info("job scheduled", slog.String("job", name), slog.String("schedule", spec))
	return nil
}

// Run executes job once, outside the schedule.
func (s *Scheduler) Run(name string, timeout time.Duration, job Job) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	id := logging.NewCorrelationID()
	ctx = logging.WithCorrelationID(ctx, id)
	logger := s.logger.With(slog.String("job", name), slog.String("correlation_id", id))
	ctx = logging.WithLogger(ctx, logger)

	start := time.Now()
	logger.Info("job started")
	err := job(ctx)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordJobDuration(name, elapsed.Seconds())
	}
	if err != nil {
		logger.Error("job failed", slog.Any("error", err), slog.Duration("duration", elapsed))
		if s.metrics != nil {
			s.metrics.RecordJobRun(name, "failure")
		}
		return err
	}
	logger.Info("job completed", slog.Duration("duration", elapsed))
	if s.metrics != nil {
		s.metrics.RecordJobRun(name, "success")
		s.metrics.RecordLastSuccess(name)
	}
	return nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling, cancels running jobs and waits for them to return
// or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}

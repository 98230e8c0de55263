package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobscout/internal/pkg/config"
)

// WorkerConfig holds the schedule and search parameters of the worker.
//
// Values come from environment variables (LoadConfigFromEnv). Invalid
// values fall back to DefaultConfig, so the worker always starts.
type WorkerConfig struct {
	// SearchSchedule is the cron expression of the search-and-save job.
	// Default: "0 */6 * * *"
	SearchSchedule string

	// CleanupSchedule prunes the error history. Default: hourly.
	CleanupSchedule string

	// RestoreSchedule probes degraded components and restores them.
	// Default: every 5 minutes.
	RestoreSchedule string

	// Timezone is the IANA timezone of every schedule.
	Timezone string

	// Keywords and Location form the scheduled query.
	Keywords   []string
	Location   string
	RemoteOnly bool

	// SearchTimeout bounds one search-and-save run, including the store
	// writes. The aggregation deadline itself is tuned in the resilience file.
	SearchTimeout time.Duration

	// HistoryRetention is the age past which error records are cleaned up.
	HistoryRetention time.Duration

	// HealthPort serves /metrics and the /health endpoints.
	// Range: 1024-65535
	HealthPort int

	// ResilienceFile is the optional YAML tuning file. Empty uses defaults.
	ResilienceFile string
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		SearchSchedule:   "0 */6 * * *",
		CleanupSchedule:  "@hourly",
		RestoreSchedule:  "@every 5m",
		Timezone:         "UTC",
		Keywords:         []string{"golang"},
		SearchTimeout:    5 * time.Minute,
		HistoryRetention: 24 * time.Hour,
		HealthPort:       9091,
	}
}

// Validate checks every field and returns all problems joined.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.SearchSchedule); err != nil {
		errs = append(errs, fmt.Errorf("search schedule: %w", err))
	}
	if err := config.ValidateCronSchedule(c.CleanupSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cleanup schedule: %w", err))
	}
	if err := config.ValidateCronSchedule(c.RestoreSchedule); err != nil {
		errs = append(errs, fmt.Errorf("restore schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if len(c.Keywords) == 0 {
		errs = append(errs, errors.New("keywords: at least one keyword is required"))
	}
	if err := config.ValidateDuration(c.SearchTimeout, 10*time.Second, time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("search timeout: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.HistoryRetention); err != nil {
		errs = append(errs, fmt.Errorf("history retention: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration. It never fails: each
// invalid variable is replaced by its default, logged and counted.
//
// Environment variables:
//   - SEARCH_SCHEDULE, CLEANUP_SCHEDULE, RESTORE_SCHEDULE: cron expressions
//   - WORKER_TIMEZONE: IANA timezone name
//   - SEARCH_KEYWORDS: comma-separated keywords
//   - SEARCH_LOCATION, SEARCH_REMOTE_ONLY
//   - SEARCH_TIMEOUT: duration, 10s to 1h
//   - ERROR_HISTORY_RETENTION: duration, 1m to 30 days
//   - WORKER_HEALTH_PORT: 1024-65535
//   - RESILIENCE_CONFIG: path of the YAML tuning file
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	d := DefaultConfig()
	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	tr := config.NewTracker(cm)

	cfg := WorkerConfig{
		SearchSchedule:   config.Track(tr, "search_schedule", config.LoadEnvWithFallback("SEARCH_SCHEDULE", d.SearchSchedule, config.ValidateCronSchedule)),
		CleanupSchedule:  config.Track(tr, "cleanup_schedule", config.LoadEnvWithFallback("CLEANUP_SCHEDULE", d.CleanupSchedule, config.ValidateCronSchedule)),
		RestoreSchedule:  config.Track(tr, "restore_schedule", config.LoadEnvWithFallback("RESTORE_SCHEDULE", d.RestoreSchedule, config.ValidateCronSchedule)),
		Timezone:         config.Track(tr, "timezone", config.LoadEnvWithFallback("WORKER_TIMEZONE", d.Timezone, config.ValidateTimezone)),
		Keywords:         config.LoadEnvList("SEARCH_KEYWORDS", d.Keywords),
		Location:         config.LoadEnvString("SEARCH_LOCATION", d.Location),
		RemoteOnly:       config.Track(tr, "remote_only", config.LoadEnvBool("SEARCH_REMOTE_ONLY", d.RemoteOnly)),
		SearchTimeout:    config.Track(tr, "search_timeout", config.LoadEnvDuration("SEARCH_TIMEOUT", d.SearchTimeout, config.Between(10*time.Second, time.Hour))),
		HistoryRetention: config.Track(tr, "history_retention", config.LoadEnvDuration("ERROR_HISTORY_RETENTION", d.HistoryRetention, config.Between(time.Minute, 30*24*time.Hour))),
		HealthPort:       config.Track(tr, "health_port", config.LoadEnvInt("WORKER_HEALTH_PORT", d.HealthPort, config.InRange(1024, 65535))),
		ResilienceFile:   config.LoadEnvString("RESILIENCE_CONFIG", d.ResilienceFile),
	}

	tr.Finish(logger)
	return &cfg
}

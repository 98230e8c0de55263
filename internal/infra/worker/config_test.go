package worker

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *WorkerMetrics {
	return newWorkerMetrics(promauto.With(prometheus.NewRegistry()))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SearchSchedule != "0 */6 * * *" {
		t.Errorf("SearchSchedule = %q", cfg.SearchSchedule)
	}
	if cfg.CleanupSchedule != "@hourly" {
		t.Errorf("CleanupSchedule = %q", cfg.CleanupSchedule)
	}
	if cfg.RestoreSchedule != "@every 5m" {
		t.Errorf("RestoreSchedule = %q", cfg.RestoreSchedule)
	}
	if cfg.HealthPort != 9091 {
		t.Errorf("HealthPort = %d", cfg.HealthPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestDefaultConfig_Immutability(t *testing.T) {
	a := DefaultConfig()
	a.Keywords[0] = "rust"
	b := DefaultConfig()
	if b.Keywords[0] != "golang" {
		t.Error("DefaultConfig returned shared keywords")
	}
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantErr string
	}{
		{"valid", func(*WorkerConfig) {}, ""},
		{"bad search schedule", func(c *WorkerConfig) { c.SearchSchedule = "every day" }, "search schedule"},
		{"empty cleanup schedule", func(c *WorkerConfig) { c.CleanupSchedule = "" }, "cleanup schedule"},
		{"bad restore schedule", func(c *WorkerConfig) { c.RestoreSchedule = "@sometimes" }, "restore schedule"},
		{"bad timezone", func(c *WorkerConfig) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"no keywords", func(c *WorkerConfig) { c.Keywords = nil }, "keywords"},
		{"short timeout", func(c *WorkerConfig) { c.SearchTimeout = time.Second }, "search timeout"},
		{"zero retention", func(c *WorkerConfig) { c.HistoryRetention = 0 }, "history retention"},
		{"privileged port", func(c *WorkerConfig) { c.HealthPort = 80 }, "health port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestWorkerConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Nowhere"
	cfg.HealthPort = 70000

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"timezone", "health port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadConfigFromEnv_AllEnvVarsValid(t *testing.T) {
	t.Setenv("SEARCH_SCHEDULE", "15 * * * *")
	t.Setenv("CLEANUP_SCHEDULE", "@daily")
	t.Setenv("RESTORE_SCHEDULE", "@every 1m")
	t.Setenv("WORKER_TIMEZONE", "Europe/Berlin")
	t.Setenv("SEARCH_KEYWORDS", "python, django ,")
	t.Setenv("SEARCH_LOCATION", "Berlin")
	t.Setenv("SEARCH_REMOTE_ONLY", "true")
	t.Setenv("SEARCH_TIMEOUT", "2m")
	t.Setenv("ERROR_HISTORY_RETENTION", "48h")
	t.Setenv("WORKER_HEALTH_PORT", "8081")
	t.Setenv("RESILIENCE_CONFIG", "/etc/jobscout/resilience.yaml")

	metrics := newTestMetrics()
	cfg := LoadConfigFromEnv(slog.New(slog.DiscardHandler), metrics)

	if cfg.SearchSchedule != "15 * * * *" || cfg.CleanupSchedule != "@daily" || cfg.RestoreSchedule != "@every 1m" {
		t.Errorf("schedules not loaded: %+v", cfg)
	}
	if cfg.Timezone != "Europe/Berlin" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if !slices.Equal(cfg.Keywords, []string{"python", "django"}) {
		t.Errorf("Keywords = %v", cfg.Keywords)
	}
	if cfg.Location != "Berlin" || !cfg.RemoteOnly {
		t.Errorf("Location = %q, RemoteOnly = %v", cfg.Location, cfg.RemoteOnly)
	}
	if cfg.SearchTimeout != 2*time.Minute || cfg.HistoryRetention != 48*time.Hour {
		t.Errorf("durations = %v, %v", cfg.SearchTimeout, cfg.HistoryRetention)
	}
	if cfg.HealthPort != 8081 {
		t.Errorf("HealthPort = %d", cfg.HealthPort)
	}
	if cfg.ResilienceFile != "/etc/jobscout/resilience.yaml" {
		t.Errorf("ResilienceFile = %q", cfg.ResilienceFile)
	}
	if got := testutil.ToFloat64(metrics.FallbackActive); got != 0 {
		t.Errorf("fallback_active = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.LoadTimestamp); got == 0 {
		t.Error("load timestamp not recorded")
	}
}

func TestLoadConfigFromEnv_MissingEnvVars(t *testing.T) {
	cfg := LoadConfigFromEnv(slog.New(slog.DiscardHandler), newTestMetrics())
	def := DefaultConfig()
	if cfg.SearchSchedule != def.SearchSchedule || cfg.HealthPort != def.HealthPort || cfg.Timezone != def.Timezone {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SEARCH_SCHEDULE", "not a cron")
	t.Setenv("WORKER_TIMEZONE", "Invalid/Zone")
	t.Setenv("SEARCH_TIMEOUT", "1s")
	t.Setenv("WORKER_HEALTH_PORT", "abc")
	t.Setenv("SEARCH_LOCATION", "Remote")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	metrics := newTestMetrics()
	cfg := LoadConfigFromEnv(logger, metrics)
	def := DefaultConfig()

	if cfg.SearchSchedule != def.SearchSchedule {
		t.Errorf("SearchSchedule = %q, want default", cfg.SearchSchedule)
	}
	if cfg.Timezone != def.Timezone {
		t.Errorf("Timezone = %q, want default", cfg.Timezone)
	}
	if cfg.SearchTimeout != def.SearchTimeout {
		t.Errorf("SearchTimeout = %v, want default", cfg.SearchTimeout)
	}
	if cfg.HealthPort != def.HealthPort {
		t.Errorf("HealthPort = %d, want default", cfg.HealthPort)
	}
	if cfg.Location != "Remote" {
		t.Errorf("valid fields should still load, Location = %q", cfg.Location)
	}

	for _, field := range []string{"search_schedule", "timezone", "search_timeout", "health_port"} {
		if got := testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues(field)); got != 1 {
			t.Errorf("fallbacks_total{field=%q} = %v, want 1", field, got)
		}
	}
	if got := testutil.ToFloat64(metrics.FallbackActive); got != 1 {
		t.Errorf("fallback_active = %v, want 1", got)
	}
	if !strings.Contains(buf.String(), "SEARCH_SCHEDULE") {
		t.Errorf("expected a warning naming SEARCH_SCHEDULE, got %s", buf.String())
	}
}

func TestLoadConfigFromEnv_NilMetrics(t *testing.T) {
	t.Setenv("WORKER_HEALTH_PORT", "1")
	cfg := LoadConfigFromEnv(slog.New(slog.DiscardHandler), nil)
	if cfg.HealthPort != 9091 {
		t.Errorf("HealthPort = %d, want default", cfg.HealthPort)
	}
}

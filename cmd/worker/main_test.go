package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"jobscout/internal/config"
	"jobscout/internal/domain/entity"
	"jobscout/internal/resilience/backoff"
	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/resilience/failure"
	"jobscout/internal/resilience/retry"
	"jobscout/internal/usecase/recovery"
	"jobscout/internal/usecase/report"
	"jobscout/internal/usecase/search"
)

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", "https://hooks.slack.com/services/T000/B000/XXX", false},
		{"empty", "", true},
		{"http", "http://hooks.slack.com/services/T000", true},
		{"other host", "https://evil.example.com/services/T000", true},
		{"wrong path", "https://hooks.slack.com/other", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWebhookURL(tt.raw, "hooks.slack.com", "/services/")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateWebhookURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestInventoryJob_NoDatabase(t *testing.T) {
	if job := inventoryJob(nil, nil); job != nil {
		t.Error("expected no inventory job without a database")
	}
}

func TestRestoreJob(t *testing.T) {
	c := recovery.NewCoordinator(recovery.WithLogger(slog.New(slog.DiscardHandler)))
	if err := c.AddStrategy(recovery.Strategy{
		Component:   "cache",
		Triggers:    []failure.Kind{failure.ConnectionFailure},
		Actions:     []recovery.Action{recovery.EnableGracefulDegradation},
		Cooldown:    time.Minute,
		MaxAttempts: 1,
	}); err != nil {
		t.Fatalf("AddStrategy() error = %v", err)
	}
	c.HandleFailure(context.Background(), "cache", failure.ConnectionFailure, nil)
	if len(c.SystemStatus().DegradedComponents) != 1 {
		t.Fatalf("degraded = %v, want [cache]", c.SystemStatus().DegradedComponents)
	}

	if err := restoreJob(c)(context.Background()); err != nil {
		t.Fatalf("restore job error = %v", err)
	}
	if got := c.SystemStatus().DegradedComponents; len(got) != 0 {
		t.Errorf("degraded after restore = %v, want none", got)
	}
	if c.Mode() != recovery.ModeNormal {
		t.Errorf("mode = %v, want normal", c.Mode())
	}
}

type timeoutSource struct{ name string }

func (s *timeoutSource) Name() string { return s.name }

func (s *timeoutSource) Search(context.Context, []string, string) ([]entity.RawListing, error) {
	return nil, failure.New(failure.Timeout, errors.New("upstream timed out"))
}

func TestSourceRetriesBeforeRecoveryTripsBreaker(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	tuning := config.DefaultResilience()

	breakers := circuitbreaker.NewRegistry(tuning.BreakerConfig, logger)
	reporter := report.NewService(tuning.Report,
		report.WithLogger(logger),
		report.WithCircuitStatus(breakers))
	coordinator := recovery.NewCoordinator(
		recovery.WithLogger(logger),
		recovery.WithTripper(breakers),
		recovery.WithAlerter(&reportAlerter{reporter: reporter}))
	reporter.SetRecoveryHandler(coordinator)
	executor := retry.NewExecutor(reporter, retry.WithLogger(logger))

	src := &timeoutSource{name: "remotive"}
	registerStrategies(logger, coordinator, tuning, []search.Source{src}, breakers, entity.SearchQuery{Keywords: []string{"go"}})

	breaker := breakers.Get(src.Name())
	policy := backoff.Policy{
		MaxAttempts: 3,
		Strategy:    backoff.Fixed,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
		Multiplier:  1,
	}
	var calls atomic.Int32
	err := executor.Run(context.Background(), retry.Call{Component: src.Name(), Operation: "search"}, policy, breaker,
		func(ctx context.Context) error {
			calls.Add(1)
			_, err := src.Search(ctx, nil, "")
			return err
		})

	if err == nil || !strings.Contains(err.Error(), "max retry attempts (3)") {
		t.Fatalf("Run() error = %v, want retries exhausted", err)
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Errorf("Run() error = %v, breaker opened mid-retry", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := reporter.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !breaker.IsOpen() {
		t.Errorf("breaker state = %v after exhausted retries, want open", breaker.State())
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobscout/internal/domain/entity"
	"jobscout/internal/infra/db"
	workerPkg "jobscout/internal/infra/worker"
	"jobscout/internal/observability/logging"
	"jobscout/internal/observability/metrics"
	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/usecase/recovery"
	"jobscout/internal/usecase/report"
	"jobscout/internal/usecase/search"
)

const (
	jobSearch    = "search"
	jobCleanup   = "cleanup"
	jobRestore   = "restore"
	jobInventory = "inventory"

	maintenanceJobTimeout = time.Minute
)

type jobs struct {
	search      workerPkg.Job
	cleanup     workerPkg.Job
	restore     workerPkg.Job
	inventory   workerPkg.Job
	searchLimit time.Duration
}

// startScheduler registers the worker jobs and starts the cron. The
// inventory job shares the cleanup schedule.
func startScheduler(logger *slog.Logger, cfg *workerPkg.WorkerConfig, wm *workerPkg.WorkerMetrics, j jobs) (*workerPkg.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	s := workerPkg.NewScheduler(loc, wm, logger)

	if err := s.Add(jobSearch, cfg.SearchSchedule, j.searchLimit, j.search); err != nil {
		return nil, err
	}
	if err := s.Add(jobCleanup, cfg.CleanupSchedule, maintenanceJobTimeout, j.cleanup); err != nil {
		return nil, err
	}
	if err := s.Add(jobRestore, cfg.RestoreSchedule, maintenanceJobTimeout, j.restore); err != nil {
		return nil, err
	}
	if j.inventory != nil {
		if err := s.Add(jobInventory, cfg.CleanupSchedule, maintenanceJobTimeout, j.inventory); err != nil {
			return nil, err
		}
	}
	s.Start()
	return s, nil
}

// searchJob runs the scheduled query. Without a store the results are only
// logged. Store failures are reported against the database component.
func searchJob(svc *search.Service, store search.ListingStore, q entity.SearchQuery, reporter *report.Service, wm *workerPkg.WorkerMetrics) workerPkg.Job {
	return func(ctx context.Context) error {
		logger := logging.FromContext(ctx)
		if store == nil {
			listings, err := svc.SearchAll(ctx, q)
			if err != nil {
				return err
			}
			logger.Info("search finished without persistence", slog.Int("listings", len(listings)))
			return nil
		}

		stats, err := svc.SearchAndSave(ctx, q, store)
		if err != nil {
			reporter.ReportError(ctx, err, recovery.ComponentDatabase, "search_and_save", map[string]any{
				"found": stats.Found,
				"saved": stats.Saved,
			})
			return fmt.Errorf("search and save: %w", err)
		}
		wm.RecordListingsSaved(stats.Saved)
		logger.Info("search saved",
			slog.Int("found", stats.Found),
			slog.Int("saved", stats.Saved),
			slog.Int("skipped", stats.Skipped))
		return nil
	}
}

func cleanupJob(reporter *report.Service, retention time.Duration) workerPkg.Job {
	return func(context.Context) error {
		reporter.Cleanup(retention)
		return nil
	}
}

// restoreJob restores degraded components whose restarter now succeeds.
func restoreJob(coordinator *recovery.Coordinator) workerPkg.Job {
	return func(ctx context.Context) error {
		status := coordinator.SystemStatus()
		if len(status.DegradedComponents) == 0 {
			return nil
		}
		restored := coordinator.RestoreDegraded(ctx)
		logging.FromContext(ctx).Info("restore sweep finished",
			slog.Int("degraded", len(status.DegradedComponents)),
			slog.Any("restored", restored))
		return nil
	}
}

// inventoryJob refreshes the stored-listing and connection pool gauges.
// It is nil when no database is configured.
func inventoryJob(repo *db.ListingRepository, dcb *circuitbreaker.DBCircuitBreaker) workerPkg.Job {
	if repo == nil {
		return nil
	}
	return func(ctx context.Context) error {
		metrics.UpdateDBPoolStats(dcb.DB().Stats())
		counts, err := repo.CountBySource(ctx)
		if err != nil {
			return fmt.Errorf("count listings: %w", err)
		}
		metrics.UpdateListingsStored(counts)
		return nil
	}
}

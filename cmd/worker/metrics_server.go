package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	workerPkg "jobscout/internal/infra/worker"
	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/usecase/recovery"
	"jobscout/internal/usecase/report"
)

// startHealthServer serves metrics and the health endpoints on port:
//   - GET /metrics
//   - GET /health and /health/ready
//   - GET /health/circuits: breaker snapshots, 503 while any is open
//   - GET /health/system: recovery mode and degraded components
//   - GET /health/errors?window=24h: error statistics
//   - GET /health/sinks: notification sink health
//
// The server stops when ctx is canceled.
func startHealthServer(ctx context.Context, logger *slog.Logger, port int, breakers *circuitbreaker.Registry, coordinator *recovery.Coordinator, reporter *report.Service) *workerPkg.HealthServer {
	addr := fmt.Sprintf(":%d", port)
	server := workerPkg.NewHealthServer(addr, logger)
	server.Handle("GET /health/circuits", workerPkg.CircuitsHandler(breakers, logger))
	server.Handle("GET /health/system", workerPkg.SystemHandler(coordinator, logger))
	server.Handle("GET /health/errors", workerPkg.ErrorsHandler(reporter, logger))
	server.Handle("GET /health/sinks", workerPkg.SinksHandler(reporter, logger))

	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	return server
}

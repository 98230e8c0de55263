package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobscout/internal/observability/metrics"
	"jobscout/internal/observability/tracing"
)

// HealthServer serves the worker's operational endpoints:
//   - /health: liveness, always 200
//   - /health/ready: readiness, 200 once SetReady(true) was called, 503 before
//   - /metrics: Prometheus exposition
//
// Status endpoints are added with Handle before Start. Every request runs
// inside a server span and is counted in http_requests_total.
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady atomic.Bool
	mux     *http.ServeMux
	server  *http.Server
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthServer creates a server listening on addr. It is not started.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HealthServer{
		addr:   addr,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /health", h.handleLiveness)
	h.mux.HandleFunc("GET /health/ready", h.handleReadiness)
	h.mux.Handle("GET /metrics", promhttp.Handler())
	return h
}

// Handle registers an additional endpoint.
func (h *HealthServer) Handle(pattern string, handler http.Handler) {
	h.mux.Handle(pattern, handler)
}

// Handler returns the routed handler with tracing and request metrics.
func (h *HealthServer) Handler() http.Handler {
	return tracing.Middleware(metrics.InstrumentHandler(h.mux))
}

// Start serves until ctx is canceled, then shuts down within 5 seconds.
// It returns http.ErrServerClosed after a graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:              h.addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		errChan <- h.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady switches the /health/ready response.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if h.isReady.Load() {
		writeJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	writeJSON(w, h.logger, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

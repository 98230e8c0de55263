package worker

import (
	"log/slog"
	"net/http"
	"time"

	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/usecase/recovery"
	"jobscout/internal/usecase/report"
)

// CircuitStatusProvider is implemented by *circuitbreaker.Registry.
type CircuitStatusProvider interface {
	Status() map[string]circuitbreaker.BreakerStatus
}

// SystemStatusProvider is implemented by *recovery.Coordinator.
type SystemStatusProvider interface {
	SystemStatus() recovery.SystemStatus
}

// ErrorStatsProvider is implemented by *report.Service.
type ErrorStatsProvider interface {
	Statistics(window time.Duration) report.Statistics
	SinkHealth() []report.SinkHealthStatus
}

const defaultStatsWindow = 24 * time.Hour

// CircuitsResponse is the body of /health/circuits.
type CircuitsResponse struct {
	Healthy  bool                                    `json:"healthy"`
	Circuits map[string]circuitbreaker.BreakerStatus `json:"circuits"`
}

// CircuitsHandler reports every breaker. It answers 503 while any breaker
// is open.
func CircuitsHandler(p CircuitStatusProvider, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		circuits := p.Status()
		healthy := true
		for _, s := range circuits {
			if s.State == circuitbreaker.StateOpen {
				healthy = false
			}
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, status, CircuitsResponse{Healthy: healthy, Circuits: circuits})
	})
}

// SystemHandler reports the recovery mode and degraded components. It
// answers 503 in emergency mode.
func SystemHandler(p SystemStatusProvider, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s := p.SystemStatus()
		status := http.StatusOK
		if s.Mode == recovery.ModeEmergency {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, status, s)
	})
}

// ErrorsHandler reports error statistics for ?window= (default 24h).
func ErrorsHandler(p ErrorStatsProvider, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		window := defaultStatsWindow
		if raw := r.URL.Query().Get("window"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d <= 0 {
				writeJSON(w, logger, http.StatusBadRequest, map[string]string{
					"error": "window must be a positive duration such as 1h or 24h",
				})
				return
			}
			window = d
		}
		writeJSON(w, logger, http.StatusOK, p.Statistics(window))
	})
}

// SinksResponse is the body of /health/sinks.
type SinksResponse struct {
	Healthy bool                      `json:"healthy"`
	Sinks   []report.SinkHealthStatus `json:"sinks"`
}

// SinksHandler reports notification sinks. An enabled sink that is paused
// after repeated failures makes the response 503.
func SinksHandler(p ErrorStatsProvider, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sinks := p.SinkHealth()
		healthy := true
		for _, s := range sinks {
			if s.Enabled && s.Paused {
				healthy = false
			}
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, status, SinksResponse{Healthy: healthy, Sinks: sinks})
	})
}

package report

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for error reporting and sink fan-out
var (
	// errorsReportedTotal tracks reported failures by component, severity and kind
	errorsReportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_reported_total",
			Help: "Total number of failures captured by the error reporter",
		},
		[]string{"component", "severity", "kind"},
	)

	historySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "error_history_size",
			Help: "Number of error records currently retained in memory",
		},
	)

	// sinkNotificationsTotal tracks sink delivery results
	sinkNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_sink_notifications_total",
			Help: "Total number of error notifications sent to sinks",
		},
		[]string{"sink", "status"}, // status: success|failure
	)

	sinkNotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "error_sink_notification_duration_seconds",
			Help:    "Error notification send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"sink"},
	)

	// sinkDroppedTotal tracks notifications that were never attempted
	sinkDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_sink_notifications_dropped_total",
			Help: "Total number of dropped error notifications",
		},
		[]string{"sink", "reason"}, // reason: pool_full|cooldown|panic
	)

	// outcomesTotal tracks per-component call outcomes logged through LogOutcome
	outcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "component_call_outcomes_total",
			Help: "Total number of component calls by outcome",
		},
		[]string{"component", "outcome"}, // outcome: success|failure
	)
)

func recordSinkResult(sink string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	sinkNotificationsTotal.WithLabelValues(sink, status).Inc()
	sinkNotificationDuration.WithLabelValues(sink).Observe(d.Seconds())
}

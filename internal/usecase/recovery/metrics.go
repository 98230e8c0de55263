package recovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_outcomes_total",
			Help: "Total number of recovery decisions by component and status",
		},
		[]string{"component", "status"},
	)

	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_actions_total",
			Help: "Total number of executed recovery actions",
		},
		[]string{"component", "action", "result"}, // result: success|failure
	)

	degradedComponents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "degraded_components",
			Help: "Number of components currently degraded",
		},
	)

	// systemMode is 1 for the current mode and 0 for the others
	systemMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_mode",
			Help: "Current system mode (1 = active)",
		},
		[]string{"mode"},
	)
)

func recordMode(m Mode) {
	for _, mode := range []Mode{ModeNormal, ModeDegraded, ModeMaintenance, ModeEmergency} {
		v := 0.0
		if mode == m {
			v = 1
		}
		systemMode.WithLabelValues(mode.String()).Set(v)
	}
}

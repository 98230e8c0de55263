package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// breakerState exposes the current state per breaker (0 closed, 1 half-open, 2 open)
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	breakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// rejectedTotal counts calls short-circuited without reaching the dependency
	rejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Total number of calls rejected by an open circuit breaker",
		},
		[]string{"name"},
	)
)

func recordState(name string, s State) {
	breakerState.WithLabelValues(name).Set(float64(s))
}

func recordTransition(name string, from, to State) {
	breakerTransitionsTotal.WithLabelValues(name, from.String(), to.String()).Inc()
	recordState(name, to)
}

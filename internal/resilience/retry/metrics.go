package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsTotal counts attempts per component by outcome (success|retryable|fatal)
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of attempts made by the retry executor",
		},
		[]string{"component", "outcome"},
	)

	exhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_exhausted_total",
			Help: "Total number of operations that failed after using every attempt",
		},
		[]string{"component"},
	)
)

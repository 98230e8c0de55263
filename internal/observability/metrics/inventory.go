package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ListingsStored is the number of persisted listings per source.
	ListingsStored = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "listings_stored",
			Help: "Number of listings in the store by source",
		},
		[]string{"source"},
	)

	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connections",
			Help: "Database connection pool connections by state (in_use, idle)",
		},
		[]string{"state"},
	)

	DBWaitCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_wait_count",
			Help: "Total number of connections waited for, as reported by the pool",
		},
	)
)

// UpdateListingsStored replaces the per-source listing counts. Sources
// missing from counts are dropped.
func UpdateListingsStored(counts map[string]int) {
	ListingsStored.Reset()
	for source, n := range counts {
		ListingsStored.WithLabelValues(source).Set(float64(n))
	}
}

// UpdateDBPoolStats copies the pool statistics into the gauges.
func UpdateDBPoolStats(stats sql.DBStats) {
	DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	DBWaitCount.Set(float64(stats.WaitCount))
}

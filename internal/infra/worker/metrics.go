package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"jobscout/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the worker.
//
// Embedded from ConfigMetrics:
//   - worker_config_load_timestamp
//   - worker_config_validation_errors_total{field}
//   - worker_config_fallbacks_total{field}
//   - worker_config_fallback_active
//
// Scheduler metrics:
//   - worker_cron_job_runs_total{job,status}
//   - worker_cron_job_duration_seconds{job}
//   - worker_cron_job_last_success_timestamp{job}
//   - worker_listings_saved_total
type WorkerMetrics struct {
	*config.ConfigMetrics

	CronJobRunsTotal            *prometheus.CounterVec
	CronJobDurationSeconds      *prometheus.HistogramVec
	CronJobLastSuccessTimestamp *prometheus.GaugeVec
	ListingsSavedTotal          prometheus.Counter
}

// NewWorkerMetrics registers the worker metrics with the default registry.
// Call it once per process.
func NewWorkerMetrics() *WorkerMetrics {
	return newWorkerMetrics(promauto.With(prometheus.DefaultRegisterer))
}

func newWorkerMetrics(factory promauto.Factory) *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWith("worker", factory),

		CronJobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of cron job runs by job and status (success/failure)",
		}, []string{"job", "status"}),

		CronJobDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of cron job execution in seconds",
			Buckets: []float64{0.1, 1, 5, 30, 60, 300, 900},
		}, []string{"job"}),

		CronJobLastSuccessTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful run of each cron job",
		}, []string{"job"}),

		ListingsSavedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "worker_listings_saved_total",
			Help: "Total number of new listings persisted by scheduled searches",
		}),
	}
}

// RecordJobRun counts one run of job with status "success" or "failure".
func (m *WorkerMetrics) RecordJobRun(job, status string) {
	m.CronJobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes the duration of one run in seconds.
func (m *WorkerMetrics) RecordJobDuration(job string, seconds float64) {
	m.CronJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordLastSuccess stamps the current time for job.
func (m *WorkerMetrics) RecordLastSuccess(job string) {
	m.CronJobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}

func (m *WorkerMetrics) RecordListingsSaved(count int) {
	m.ListingsSavedTotal.Add(float64(count))
}

package config

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics tracks configuration loads and fallbacks for one component.
//
// Metrics (prefixed with the component name):
//   - {component}_config_load_timestamp
//   - {component}_config_validation_errors_total{field}
//   - {component}_config_fallbacks_total{field}
//   - {component}_config_fallback_active
//
// Metric names are registered on the default registry, so each component
// name may be used once per process.
type ConfigMetrics struct {
	LoadTimestamp         prometheus.Gauge
	ValidationErrorsTotal *prometheus.CounterVec
	FallbacksTotal        *prometheus.CounterVec
	FallbackActive        prometheus.Gauge

	componentName string
}

// NewConfigMetrics registers the metrics for componentName.
func NewConfigMetrics(componentName string) *ConfigMetrics {
	return newConfigMetrics(componentName, promauto.With(prometheus.DefaultRegisterer))
}

// NewConfigMetricsWith registers the metrics for componentName through factory.
func NewConfigMetricsWith(componentName string, factory promauto.Factory) *ConfigMetrics {
	return newConfigMetrics(componentName, factory)
}

func newConfigMetrics(componentName string, factory promauto.Factory) *ConfigMetrics {
	return &ConfigMetrics{
		LoadTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", componentName),
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", componentName),
		}),
		ValidationErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_validation_errors_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration validation errors", componentName),
		}, []string{"field"}),
		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration fallback operations", componentName),
		}, []string{"field"}),
		FallbackActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", componentName),
			Help: fmt.Sprintf("1 if any %s configuration fallback is active, 0 otherwise", componentName),
		}),
		componentName: componentName,
	}
}

func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

func (m *ConfigMetrics) RecordFallback(field string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}

// Tracker collects fallback warnings while a component loads its config.
// A nil *ConfigMetrics is allowed.
type Tracker struct {
	metrics  *ConfigMetrics
	warnings []string
}

// NewTracker returns a Tracker reporting to m.
func NewTracker(m *ConfigMetrics) *Tracker {
	return &Tracker{metrics: m}
}

// Track records r under field and returns its value.
func Track[T any](t *Tracker, field string, r LoadResult[T]) T {
	if r.FallbackApplied {
		t.warnings = append(t.warnings, r.Warning)
		if t.metrics != nil {
			t.metrics.RecordValidationError(field)
			t.metrics.RecordFallback(field)
		}
	}
	return r.Value
}

// Warnings returns every fallback warning recorded so far.
func (t *Tracker) Warnings() []string { return t.warnings }

// Finish updates the load timestamp and fallback gauge, and logs each warning.
func (t *Tracker) Finish(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, w := range t.warnings {
		logger.Warn("configuration fallback applied", slog.String("warning", w))
	}
	if t.metrics != nil {
		t.metrics.RecordLoadTimestamp()
		t.metrics.SetFallbackActive(len(t.warnings) > 0)
	}
}

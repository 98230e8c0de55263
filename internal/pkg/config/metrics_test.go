package config

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) *ConfigMetrics {
	t.Helper()
	return newConfigMetrics("test_component", promauto.With(prometheus.NewRegistry()))
}

func TestConfigMetrics_Record(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordValidationError("timezone")
	m.RecordValidationError("timezone")
	m.RecordFallback("cron_schedule")
	m.SetFallbackActive(true)

	if got := testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("timezone")); got != 2 {
		t.Errorf("validation errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("cron_schedule")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FallbackActive); got != 1 {
		t.Errorf("fallback active = %v, want 1", got)
	}

	m.SetFallbackActive(false)
	if got := testutil.ToFloat64(m.FallbackActive); got != 0 {
		t.Errorf("fallback active = %v, want 0", got)
	}
}

func TestConfigMetrics_LoadTimestamp(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordLoadTimestamp()
	if got := testutil.ToFloat64(m.LoadTimestamp); got <= 0 {
		t.Errorf("load timestamp = %v, want > 0", got)
	}
}

func TestTracker(t *testing.T) {
	m := newTestMetrics(t)
	tr := NewTracker(m)

	t.Setenv("TEST_TRACK_INT", "abc")
	t.Setenv("TEST_TRACK_BOOL", "true")
	n := Track(tr, "int", LoadEnvInt("TEST_TRACK_INT", 3, nil))
	b := Track(tr, "bool", LoadEnvBool("TEST_TRACK_BOOL", false))
	tr.Finish(nil)

	if n != 3 || !b {
		t.Errorf("values = (%d, %v)", n, b)
	}
	if len(tr.Warnings()) != 1 {
		t.Errorf("warnings = %v, want 1", tr.Warnings())
	}
	if got := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("int")); got != 1 {
		t.Errorf("fallbacks{int} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FallbackActive); got != 1 {
		t.Errorf("fallback active = %v, want 1", got)
	}
}

func TestTracker_NilMetrics(t *testing.T) {
	tr := NewTracker(nil)
	t.Setenv("TEST_TRACK_NIL", "x")
	_ = Track(tr, "nil", LoadEnvInt("TEST_TRACK_NIL", 1, nil))
	tr.Finish(nil)
	if len(tr.Warnings()) != 1 {
		t.Errorf("warnings = %v", tr.Warnings())
	}
}

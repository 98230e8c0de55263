package metrics

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health/circuits", "503"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/circuits", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/health/circuits", "503"))
	if after-before != 1 {
		t.Errorf("requests counter increased by %v, want 1", after-before)
	}
}

func TestRecordHTTPRequest_CollapsesUnknownPaths(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "other", "404"))
	RecordHTTPRequest("GET", "/wp-admin/login.php", http.StatusNotFound, time.Millisecond)
	RecordHTTPRequest("GET", "/.env", http.StatusNotFound, time.Millisecond)

	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "other", "404")) - before; got != 2 {
		t.Errorf("other counter increased by %v, want 2", got)
	}
}

func TestPathLabel(t *testing.T) {
	tests := map[string]string{
		"/metrics":       "/metrics",
		"/health":        "/health",
		"/health/errors": "/health/errors",
		"/healthz":       "other",
		"/":              "other",
	}
	for in, want := range tests {
		if got := pathLabel(in); got != want {
			t.Errorf("pathLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUpdateListingsStored(t *testing.T) {
	UpdateListingsStored(map[string]int{"remotive": 12, "linkedin": 3})
	if got := testutil.ToFloat64(ListingsStored.WithLabelValues("remotive")); got != 12 {
		t.Errorf("remotive = %v, want 12", got)
	}

	UpdateListingsStored(map[string]int{"linkedin": 4})
	if got := testutil.CollectAndCount(ListingsStored); got != 1 {
		t.Errorf("expected stale sources to be dropped, got %d series", got)
	}
	if got := testutil.ToFloat64(ListingsStored.WithLabelValues("linkedin")); got != 4 {
		t.Errorf("linkedin = %v, want 4", got)
	}
}

func TestUpdateDBPoolStats(t *testing.T) {
	UpdateDBPoolStats(sql.DBStats{InUse: 3, Idle: 7, WaitCount: 2})

	if got := testutil.ToFloat64(DBConnections.WithLabelValues("in_use")); got != 3 {
		t.Errorf("in_use = %v, want 3", got)
	}
	if got := testutil.ToFloat64(DBConnections.WithLabelValues("idle")); got != 7 {
		t.Errorf("idle = %v, want 7", got)
	}
	if got := testutil.ToFloat64(DBWaitCount); got != 2 {
		t.Errorf("wait count = %v, want 2", got)
	}
}

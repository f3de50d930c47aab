package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoaderMetrics(t *testing.T) {
	m, err := NewLoaderMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewLoaderMetrics() error = %v", err)
	}

	m.RecordRow("reptiles", OutcomeLoaded)
	m.RecordRow("reptiles", OutcomeLoaded)
	m.RecordRowFailure("reptiles", "value")
	m.RecordReferenceMisses(3)
	m.RecordReferenceMisses(0)
	m.RecordTaxaCreated(2)
	m.RecordLoad("reptiles", StatusComplete, time.Second, 2)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{name: "loaded rows", c: m.rowsTotal.WithLabelValues("reptiles", OutcomeLoaded), want: 2},
		{name: "failed rows", c: m.rowsTotal.WithLabelValues("reptiles", OutcomeFailed), want: 1},
		{name: "failure reason", c: m.rowFailuresTotal.WithLabelValues("reptiles", "value"), want: 1},
		{name: "misses", c: m.referenceMissesTotal, want: 3},
		{name: "taxa", c: m.taxaCreatedTotal, want: 2},
		{name: "loads", c: m.loadsTotal.WithLabelValues("reptiles", StatusComplete), want: 1},
		{name: "last load rows", c: m.lastLoadRows.WithLabelValues("reptiles"), want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var lm *LoaderMetrics
	lm.RecordRow("reptiles", OutcomeLoaded)
	lm.RecordRowFailure("reptiles", "format")
	lm.RecordReferenceMisses(1)
	lm.RecordTaxaCreated(1)
	lm.RecordLoad("reptiles", StatusFailed, time.Millisecond, 0)

	var hm *HTTPMetrics
	hm.RecordRequest("GET", "/api/hello", 200, time.Millisecond)
	hm.RecordAuthFailure()
}

func TestHTTPMetrics(t *testing.T) {
	m, err := NewHTTPMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewHTTPMetrics() error = %v", err)
	}

	m.RecordRequest("GET", "/api/reptiles/{id}", 404, time.Millisecond)
	m.RecordRequest("GET", "", 404, time.Millisecond)
	m.RecordAuthFailure()

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/reptiles/{id}", "404")); got != 1 {
		t.Errorf("route requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.authFailuresTotal); got != 1 {
		t.Errorf("auth failures = %v, want 1", got)
	}
}

func TestNew_RegistersEverything(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.Loader.RecordRow("reptiles", OutcomeLoaded)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "reptiledb_loader_rows_total" {
			found = true
		}
	}
	if !found {
		t.Error("reptiledb_loader_rows_total not gathered")
	}
}

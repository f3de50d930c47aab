// Package metrics provides Prometheus collectors for dump loads and the HTTP
// API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Row outcomes and load statuses used as label values.
const (
	OutcomeLoaded = "loaded"
	OutcomeFailed = "failed"

	StatusComplete  = "complete"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// LoaderMetrics contains the collectors for dump loads. A nil
// *LoaderMetrics records nothing.
type LoaderMetrics struct {
	rowsTotal            *prometheus.CounterVec
	rowFailuresTotal     *prometheus.CounterVec
	referenceMissesTotal prometheus.Counter
	taxaCreatedTotal     prometheus.Counter
	loadsTotal           *prometheus.CounterVec
	loadDuration         *prometheus.HistogramVec
	lastLoadRows         *prometheus.GaugeVec

	collectors []prometheus.Collector
}

// NewLoaderMetrics creates the loader collectors and registers them.
func NewLoaderMetrics(registry prometheus.Registerer) (*LoaderMetrics, error) {
	m := &LoaderMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LoaderMetrics) initMetrics() {
	m.rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reptiledb_loader_rows_total",
			Help: "Dump rows processed by outcome",
		},
		[]string{"dump", "outcome"}, // dump: reptiles, bibliography; outcome: loaded, failed
	)

	m.rowFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reptiledb_loader_row_failures_total",
			Help: "Skipped dump rows by failure reason",
		},
		[]string{"dump", "reason"}, // reason: format, value, constraint, data
	)

	m.referenceMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reptiledb_loader_biblio_misses_total",
			Help: "Bibliography ids referenced by a reptile but absent from the store",
		},
	)

	m.taxaCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reptiledb_loader_taxa_created_total",
			Help: "Higher taxa created during loads",
		},
	)

	m.loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reptiledb_loads_total",
			Help: "Loads by final status",
		},
		[]string{"dump", "status"},
	)

	m.loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reptiledb_load_duration_seconds",
			Help:    "Wall time of a load from read to commit",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
		},
		[]string{"dump"},
	)

	m.lastLoadRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reptiledb_last_load_rows",
			Help: "Rows loaded by the most recent committed load",
		},
		[]string{"dump"},
	)

	m.collectors = []prometheus.Collector{
		m.rowsTotal,
		m.rowFailuresTotal,
		m.referenceMissesTotal,
		m.taxaCreatedTotal,
		m.loadsTotal,
		m.loadDuration,
		m.lastLoadRows,
	}
}

// Describe implements the Collector interface
func (m *LoaderMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *LoaderMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordRow records one processed row.
func (m *LoaderMetrics) RecordRow(dump, outcome string) {
	if m == nil {
		return
	}
	m.rowsTotal.WithLabelValues(dump, outcome).Inc()
}

// RecordRowFailure records why a row was skipped.
func (m *LoaderMetrics) RecordRowFailure(dump, reason string) {
	if m == nil {
		return
	}
	m.rowsTotal.WithLabelValues(dump, OutcomeFailed).Inc()
	m.rowFailuresTotal.WithLabelValues(dump, reason).Inc()
}

// RecordReferenceMisses adds n unresolved bibliography ids.
func (m *LoaderMetrics) RecordReferenceMisses(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.referenceMissesTotal.Add(float64(n))
}

// RecordTaxaCreated adds n created taxa.
func (m *LoaderMetrics) RecordTaxaCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.taxaCreatedTotal.Add(float64(n))
}

// RecordLoad records the end of a load.
func (m *LoaderMetrics) RecordLoad(dump, status string, d time.Duration, loaded int) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(dump, status).Inc()
	m.loadDuration.WithLabelValues(dump).Observe(d.Seconds())
	if status == StatusComplete {
		m.lastLoadRows.WithLabelValues(dump).Set(float64(loaded))
	}
}

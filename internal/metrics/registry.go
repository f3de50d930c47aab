package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles every collector of the process.
type Metrics struct {
	Registry *prometheus.Registry
	Loader   *LoaderMetrics
	HTTP     *HTTPMetrics
}

// New creates a registry with the Go runtime and process collectors plus the
// loader and HTTP collectors.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	loader, err := NewLoaderMetrics(registry)
	if err != nil {
		return nil, err
	}
	httpMetrics, err := NewHTTPMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Metrics{Registry: registry, Loader: loader, HTTP: httpMetrics}, nil
}

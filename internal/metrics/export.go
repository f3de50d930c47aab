package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// ExportTarget names where a finished CLI load publishes its loader metrics.
// Empty fields are skipped.
type ExportTarget struct {
	TextfilePath string // node-exporter textfile collector file
	PushURL      string // Pushgateway base URL
	PushJob      string
}

// Enabled reports whether any target is set.
func (t ExportTarget) Enabled() bool {
	return t.TextfilePath != "" || t.PushURL != ""
}

// loaderGatherer gathers only the loader collectors. Runtime and process
// metrics of a short-lived CLI run are not exported.
func (m *Metrics) loaderGatherer() (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(m.Loader); err != nil {
		return nil, fmt.Errorf("register loader metrics: %w", err)
	}
	return registry, nil
}

// Export writes the loader metrics to every configured target. Each target
// is attempted; the returned error joins every failure.
func (m *Metrics) Export(ctx context.Context, target ExportTarget) error {
	if m == nil || m.Loader == nil || !target.Enabled() {
		return nil
	}

	registry, err := m.loaderGatherer()
	if err != nil {
		return err
	}

	var errs []error
	if target.TextfilePath != "" {
		if err := prometheus.WriteToTextfile(target.TextfilePath, registry); err != nil {
			errs = append(errs, fmt.Errorf("write textfile %s: %w", target.TextfilePath, err))
		}
	}
	if target.PushURL != "" {
		if err := push.New(target.PushURL, target.PushJob).Gatherer(registry).PushContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("push to %s: %w", target.PushURL, err))
		}
	}
	return errors.Join(errs...)
}

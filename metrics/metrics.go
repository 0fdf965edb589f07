// Package metrics exposes Prometheus metrics on a dedicated listener.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the /metrics endpoint on its own address so the
// scrape target is never exposed on the API listener.
type MetricsServer struct {
	srv      *http.Server
	registry *prometheus.Registry

	RecordsSubmitted  prometheus.Counter
	RevealsRequested  *prometheus.CounterVec
	CallbacksReceived *prometheus.CounterVec
}

// New creates a metrics server for the given namespace listening on addr.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &MetricsServer{
		registry: registry,
		RecordsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_submitted_total",
			Help:      "Number of encrypted records submitted.",
		}),
		RevealsRequested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reveals_requested_total",
			Help:      "Number of reveal requests minted, by target kind.",
		}, []string{"target"}),
		CallbacksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_callbacks_total",
			Help:      "Number of oracle callbacks processed, by outcome.",
		}, []string{"outcome"}),
	}

	if err := registry.Register(m.RecordsSubmitted); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := registry.Register(m.RevealsRequested); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := registry.Register(m.CallbacksReceived); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	m.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return m, nil
}

// ListenAndServe blocks serving the metrics endpoint.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

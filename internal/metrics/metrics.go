// Package metrics exposes Prometheus instrumentation on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing,
// which is how disabled metrics are represented.
type Metrics struct {
	registry *prometheus.Registry

	LookupDuration      *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ScansInFlight       prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	buckets := []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30}

	return &Metrics{
		registry: registry,
		LookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webcheck_lookup_duration_seconds",
				Help:    "Time spent in each scan lookup",
				Buckets: buckets,
			},
			[]string{"lookup", "outcome"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webcheck_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webcheck_http_request_duration_seconds",
				Help:    "Time spent serving HTTP requests",
				Buckets: buckets,
			},
			[]string{"route", "method"},
		),
		ScansInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webcheck_scans_in_flight",
				Help: "Number of scan bundles currently running",
			},
		),
	}
}

// ObserveLookup records the duration of one lookup.
func (m *Metrics) ObserveLookup(lookup, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LookupDuration.WithLabelValues(lookup, outcome).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// TrackScan increments the in-flight gauge and returns the matching decrement.
func (m *Metrics) TrackScan() func() {
	if m == nil {
		return func() {}
	}
	m.ScansInFlight.Inc()
	return m.ScansInFlight.Dec
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Package metrics owns the Prometheus collectors of the server and worker.
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

// Metrics holds every application collector. Each instance has its own
// registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	collectionSaves   *prometheus.CounterVec
	viewCache         *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	published         *prometheus.CounterVec
	mirrorRuns        *prometheus.CounterVec
	mirroredRows      prometheus.Gauge
	breakerState      *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_operations_total",
				Help: "Session operations by name and outcome.",
			},
			[]string{"operation", "status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budget_operation_duration_seconds",
				Help:    "Duration of session operations, persistence included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		collectionSaves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_collection_saves_total",
				Help: "Successful full-collection writes by key.",
			},
			[]string{"key"},
		),
		viewCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_view_cache_lookups_total",
				Help: "Month view cache lookups by result.",
			},
			[]string{"result"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_http_requests_total",
				Help: "HTTP requests by route pattern and status code.",
			},
			[]string{"method", "route", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budget_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_events_published_total",
				Help: "Collection saved events handed to the broker, by outcome.",
			},
			[]string{"status"},
		),
		mirrorRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_sheets_mirror_runs_total",
				Help: "Ledger mirror runs by trigger and outcome.",
			},
			[]string{"trigger", "status"},
		),
		mirroredRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "budget_sheets_mirrored_rows",
				Help: "Transactions written by the last successful mirror run.",
			},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "budget_circuit_breaker_state",
				Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"name"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveOperation records one session operation. A nil receiver is a no-op
// so callers need no guard.
func (m *Metrics) ObserveOperation(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncCollectionSave(key string) {
	if m == nil {
		return
	}
	m.collectionSaves.WithLabelValues(key).Inc()
}

func (m *Metrics) IncViewCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.viewCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) IncPublished(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.published.WithLabelValues(status).Inc()
}

// ObserveMirror records a mirror run; rows is only kept on success.
func (m *Metrics) ObserveMirror(trigger string, rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.mirrorRuns.WithLabelValues(trigger, "error").Inc()
		return
	}
	m.mirrorRuns.WithLabelValues(trigger, "success").Inc()
	m.mirroredRows.Set(float64(rows))
}

// SetBreakerState publishes the state of a named circuit breaker.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

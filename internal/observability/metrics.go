// Package observability exposes the Prometheus registry shared by the ops
// server, the voucher workflow and background jobs.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

// Metrics owns a private registry. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	workflow  *prometheus.CounterVec
	workflowT *prometheus.HistogramVec
	jobs      *jobmetrics.Metrics
}

// NewMetrics builds the registry with runtime collectors, HTTP and workflow
// metrics and the job metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_ledger_http_requests_total",
			Help: "Ops HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_ledger_http_request_duration_seconds",
			Help:    "Ops HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "odyssey_ledger_http_requests_in_flight",
			Help: "Ops HTTP requests currently being served.",
		}),
		workflow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_ledger_workflow_total",
			Help: "Voucher workflow operations by action and outcome.",
		}, []string{"action", "outcome"}),
		workflowT: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_ledger_workflow_duration_seconds",
			Help:    "Voucher workflow operation latency by action.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"action"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.inFlight, m.workflow, m.workflowT,
	)
	m.jobs = jobmetrics.NewMetrics(registry)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler serves the registry. Without metrics it answers 503.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records one sample per request, labelled by the chi route
// pattern rather than the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := routePattern(r)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveTransition implements ledger.Observer.
func (m *Metrics) ObserveTransition(action, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.workflow.WithLabelValues(action, outcome).Inc()
	m.workflowT.WithLabelValues(action).Observe(elapsed.Seconds())
}

// Jobs returns the job metrics registered on the same registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

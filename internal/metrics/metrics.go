// Package metrics exposes the Prometheus collectors used across StockSense.
// All methods are safe on a nil *Registry so components can run unmetered.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all StockSense metrics on a dedicated Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheRequests    *prometheus.CounterVec
	Analyses         *prometheus.CounterVec
	Confidence       prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	SchedulerRuns    *prometheus.CounterVec
}

// New creates a registry with the Go and process collectors plus all
// StockSense collectors registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksense_upstream_duration_seconds",
				Help:    "Latency of calls to upstream services",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"upstream", "endpoint"},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_upstream_errors_total",
				Help: "Failed calls to upstream services",
			},
			[]string{"upstream", "endpoint"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_cache_requests_total",
				Help: "Cache lookups by result",
			},
			[]string{"cache", "result"},
		),
		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_analyses_total",
				Help: "Stock analyses by outcome",
			},
			[]string{"result"},
		),
		Confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stocksense_adjusted_confidence",
				Help:    "Distribution of adjusted prediction confidence",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksense_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SchedulerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_scheduler_runs_total",
				Help: "Scheduled task runs by task and result",
			},
			[]string{"task", "result"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.UpstreamDuration,
		r.UpstreamErrors,
		r.CacheRequests,
		r.Analyses,
		r.Confidence,
		r.HTTPRequests,
		r.HTTPDuration,
		r.SchedulerRuns,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.DefaultGatherer
	}
	return r.reg
}

// ObserveUpstream records the latency of one upstream call and counts it as
// an error when err is non-nil.
func (r *Registry) ObserveUpstream(upstream, endpoint string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.UpstreamDuration.WithLabelValues(upstream, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		r.UpstreamErrors.WithLabelValues(upstream, endpoint).Inc()
	}
}

// CacheHit counts a cache hit.
func (r *Registry) CacheHit(cache string) {
	if r == nil {
		return
	}
	r.CacheRequests.WithLabelValues(cache, "hit").Inc()
}

// CacheMiss counts a cache miss.
func (r *Registry) CacheMiss(cache string) {
	if r == nil {
		return
	}
	r.CacheRequests.WithLabelValues(cache, "miss").Inc()
}

// AnalysisDone counts one analysis and, on success, records its confidence.
func (r *Registry) AnalysisDone(confidence float64, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.Analyses.WithLabelValues("error").Inc()
		return
	}
	r.Analyses.WithLabelValues("ok").Inc()
	r.Confidence.Observe(confidence)
}

// ObserveHTTP records one served HTTP request.
func (r *Registry) ObserveHTTP(method, route, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, status).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SchedulerRun counts one scheduled task run.
func (r *Registry) SchedulerRun(task string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.SchedulerRuns.WithLabelValues(task, result).Inc()
}

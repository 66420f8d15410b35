package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder captures relay metrics.
type Recorder interface {
	ObserveRequest(method, route, status string, durationSeconds float64)
	ObserveCompletion(operation, outcome string, durationSeconds float64)
	IncNormalization(result string)
}

// Normalization results.
const (
	NormalizeWrapped   = "wrapped"
	NormalizeUnchanged = "unchanged"
	NormalizeSkipped   = "non_string"
)

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) ObserveRequest(string, string, string, float64) {}
func (Noop) ObserveCompletion(string, string, float64)      {}
func (Noop) IncNormalization(string)                        {}

// Prom implements Recorder backed by Prometheus collectors on its own registry.
type Prom struct {
	registry       *prometheus.Registry
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	completions    *prometheus.HistogramVec
	normalizations *prometheus.CounterVec
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		completions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Upstream completion latency by operation and outcome",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"operation", "outcome"}),
		normalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "latex_normalizations_total",
			Help:      "LaTeX normalizer decisions",
		}, []string{"result"}),
	}
	p.registry.MustRegister(
		p.httpRequests, p.httpLatency, p.completions, p.normalizations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prom) ObserveRequest(method, route, status string, durationSeconds float64) {
	p.httpRequests.WithLabelValues(method, route, status).Inc()
	p.httpLatency.WithLabelValues(method, route).Observe(durationSeconds)
}

func (p *Prom) ObserveCompletion(operation, outcome string, durationSeconds float64) {
	p.completions.WithLabelValues(operation, outcome).Observe(durationSeconds)
}

func (p *Prom) IncNormalization(result string) {
	p.normalizations.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (p *Prom) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

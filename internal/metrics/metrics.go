// Package metrics exposes the proxy's Prometheus instrumentation: cache
// call/miss counters and a response-time histogram, gathered from a
// private registry so the proxy never pulls in the default global
// registry's process/Go-runtime collectors unasked.
package metrics

import (
	"bytes"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// responseTimeBuckets gives dense coverage from 10 microseconds to 10
// seconds, wide enough to separate a cache hit (microseconds) from a
// cache miss round-tripping to a backend (milliseconds to seconds).
var responseTimeBuckets = []float64{
	0.00001, 0.00002, 0.00005,
	0.0001, 0.0002, 0.0005,
	0.001, 0.002, 0.005,
	0.01, 0.02, 0.05,
	0.1, 0.2, 0.5,
	1, 2, 5,
	10,
}

// Metrics holds the proxy's counters and histograms behind a private
// registry.
type Metrics struct {
	registry     *prometheus.Registry
	cacheCalls   prometheus.Counter
	cacheMisses  prometheus.Counter
	responseTime prometheus.Histogram
}

// New creates and registers the proxy's metric collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_calls",
			Help: "Total number of requests that went through the cache lookup path.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses",
			Help: "Total number of requests that missed the cache and were forwarded to a backend.",
		}),
		responseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "Time to serve a request, from accept to response fully written.",
			Buckets: responseTimeBuckets,
		}),
	}
	m.registry.MustRegister(m.cacheCalls, m.cacheMisses, m.responseTime)
	return m
}

// IncCacheCalls increments the cache-calls counter; called once per
// request that enters the cache lookup path.
func (m *Metrics) IncCacheCalls() { m.cacheCalls.Inc() }

// IncCacheMisses increments the cache-misses counter; called once per
// request forwarded to a backend.
func (m *Metrics) IncCacheMisses() { m.cacheMisses.Inc() }

// ObserveResponseTime records the duration, in seconds, of a fully served
// request.
func (m *Metrics) ObserveResponseTime(seconds float64) {
	m.responseTime.Observe(seconds)
}

// Registry returns the private registry backing these collectors, for an
// external collaborator (e.g. an HTTP handler, or a test) to gather from
// directly.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an http.Handler exposing this registry's metrics in
// Prometheus exposition format. The proxy server never mounts this
// itself; it is wired into whatever mux the caller assembles (cmd/risu
// serves it at /metrics on its own listener on prometheus_port).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Encode gathers the current metric families and renders them in
// Prometheus text exposition format.
func (m *Metrics) Encode() ([]byte, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

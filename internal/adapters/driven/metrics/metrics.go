// Package metrics exports search telemetry to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Namespace prefixes every metric name
const Namespace = "sercha"

// Verify interface compliance
var _ driven.SearchObserver = (*Recorder)(nil)

// Recorder implements driven.SearchObserver with Prometheus collectors
type Recorder struct {
	gatherer prometheus.Gatherer

	searchDuration *prometheus.HistogramVec
	searchResults  *prometheus.HistogramVec
	cacheTotal     *prometheus.CounterVec
	reloadsTotal   *prometheus.CounterVec
	indexes        prometheus.Gauge

	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewRecorder creates a Recorder registered with a fresh registry that also
// carries the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewRecorderWith(reg, reg)
}

// NewRecorderWith creates a Recorder registered with reg. The gatherer
// backs Handler.
func NewRecorderWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	r := &Recorder{
		gatherer: gatherer,
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "search_duration_seconds",
				Help:      "Search and autocomplete duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"index", "operation", "outcome"},
		),
		searchResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "search_results",
				Help:      "Number of results returned per successful search",
				Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 250},
			},
			[]string{"index", "operation"},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "search_cache_total",
				Help:      "Result cache hits and misses",
			},
			[]string{"index", "result"}, // "hit" / "miss"
		),
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "config_reloads_total",
				Help:      "Configuration reloads by result",
			},
			[]string{"result"},
		),
		indexes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "indexes",
				Help:      "Number of configured indexes",
			},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}

	reg.MustRegister(
		r.searchDuration,
		r.searchResults,
		r.cacheTotal,
		r.reloadsTotal,
		r.indexes,
		r.httpRequestDuration,
		r.httpRequestsTotal,
	)
	return r
}

// ObserveSearch records one finished search or autocomplete call
func (r *Recorder) ObserveSearch(index, operation string, outcome domain.SearchOutcome, elapsed time.Duration, results int) {
	r.searchDuration.WithLabelValues(index, operation, string(outcome)).Observe(elapsed.Seconds())
	if outcome == domain.OutcomeOK {
		r.searchResults.WithLabelValues(index, operation).Observe(float64(results))
	}
}

// ObserveCache records a cache lookup
func (r *Recorder) ObserveCache(index string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheTotal.WithLabelValues(index, result).Inc()
}

// ObserveReload records a configuration reload
func (r *Recorder) ObserveReload(success bool, indexes int) {
	if !success {
		r.reloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	r.reloadsTotal.WithLabelValues("success").Inc()
	r.indexes.Set(float64(indexes))
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

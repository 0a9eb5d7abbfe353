// Package prometheus exposes service metrics: analysis throughput and
// latency, reference import counts, and index size.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentinel"

var analysisDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics implements the engine's MetricsRecorder over a Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	analysesTotal    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	referenceImports prometheus.Counter
	indexSize        prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers all metrics on a fresh registry that also carries the
// standard Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newWithRegistry(registry)
}

func newWithRegistry(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		analysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed listing analyses by risk tier.",
		}, []string{"tier"}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis latency.",
			Buckets:   analysisDurationBuckets,
		}),
		referenceImports: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_imports_total",
			Help:      "Reference listings imported into the index.",
		}),
		indexSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_size",
			Help:      "Reference listings currently indexed.",
		}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and path.",
			Buckets:   analysisDurationBuckets,
		}, []string{"method", "path"}),
	}
}

// ObserveAnalysis records one completed analysis.
func (m *Metrics) ObserveAnalysis(tier string, duration time.Duration) {
	m.analysesTotal.WithLabelValues(tier).Inc()
	m.analysisDuration.Observe(duration.Seconds())
}

// AddReferenceImport counts one imported reference listing.
func (m *Metrics) AddReferenceImport() {
	m.referenceImports.Inc()
}

// SetIndexSize records the current reference corpus size.
func (m *Metrics) SetIndexSize(n int) {
	m.indexSize.Set(float64(n))
}

// ObserveHTTPRequest records one handled HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

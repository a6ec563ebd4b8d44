package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	exportsTotal          *prometheus.CounterVec
	exportDurationSeconds *prometheus.HistogramVec
	cacheLookupsTotal     *prometheus.CounterVec
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors for report exports.
func RegisterMetrics() {
	registerOnce.Do(func() {
		exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradereport_exports_total",
			Help: "Total number of report exports by format and outcome.",
		}, []string{"format", "outcome"})

		exportDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradereport_export_duration_seconds",
			Help:    "Time spent arranging and rendering a report.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"format"})

		cacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradereport_cache_lookups_total",
			Help: "Export cache lookups by result (hit, miss, error).",
		}, []string{"result"})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradereport_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradereport_http_latency_seconds",
			Help:    "Latency distribution of HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(exportsTotal, exportDurationSeconds, cacheLookupsTotal, httpRequestsTotal, httpLatencySeconds)
	})
}

// Exports exposes the export counter.
func Exports() *prometheus.CounterVec {
	RegisterMetrics()
	return exportsTotal
}

// ExportDuration exposes the export latency histogram.
func ExportDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return exportDurationSeconds
}

// CacheLookups exposes the cache lookup counter.
func CacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheLookupsTotal
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

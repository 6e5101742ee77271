package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	eligibilityDecisions   *prometheus.CounterVec
	eligibilityDenials     *prometheus.CounterVec
	eligibilityLatency     *prometheus.HistogramVec
	standingCacheLookups   *prometheus.CounterVec
	regularityImportedRows *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors exposed by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipes_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ipes_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipes_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		eligibilityDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipes_eligibility_decisions_total",
			Help: "Eligibility evaluations by action and verdict.",
		}, []string{"action", "allowed"})

		eligibilityDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipes_eligibility_denial_reasons_total",
			Help: "Denial reasons reported by eligibility evaluations.",
		}, []string{"action", "reason"})

		eligibilityLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ipes_eligibility_evaluation_seconds",
			Help:    "Time spent loading snapshots and evaluating eligibility.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"action"})

		standingCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipes_standing_cache_lookups_total",
			Help: "Academic standing cache lookups by result.",
		}, []string{"result"})

		regularityImportedRows = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipes_regularity_import_rows_total",
			Help: "Regularity import rows by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			eligibilityDecisions,
			eligibilityDenials,
			eligibilityLatency,
			standingCacheLookups,
			regularityImportedRows,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// EligibilityDecisions counts evaluations by action and verdict.
func EligibilityDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return eligibilityDecisions
}

// EligibilityDenials counts denial reasons by action and code.
func EligibilityDenials() *prometheus.CounterVec {
	RegisterMetrics()
	return eligibilityDenials
}

// EligibilityLatency exposes the evaluation latency histogram.
func EligibilityLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return eligibilityLatency
}

// StandingCacheLookups counts standing cache hits and misses.
func StandingCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return standingCacheLookups
}

// RegularityImportRows counts imported and rejected CSV rows.
func RegularityImportRows() *prometheus.CounterVec {
	RegisterMetrics()
	return regularityImportedRows
}

// MetricsHandler serves the default registry, OpenMetrics included, on the fiber app.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}

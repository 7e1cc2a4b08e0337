package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)

	auditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promo_audit_dropped_events_total",
		Help: "Admin audit entries that could not be persisted.",
	})
	inventoryRestorations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_inventory_restorations_total",
			Help: "Products whose capacity or availability was restored.",
		},
		[]string{"fulfillment_type"},
	)
	featureTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_feature_transitions_total",
			Help: "Promotional feature status transitions.",
		},
		[]string{"status"},
	)
	workerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_worker_runs_total",
			Help: "Background worker executions by outcome.",
		},
		[]string{"worker", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		auditDropped,
		inventoryRestorations,
		featureTransitions,
		workerRuns,
	)
}

// RecordRequest records metrics for one HTTP request.
func RecordRequest(method, route string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// AuditDropped counts an audit entry that the sink rejected.
func AuditDropped() { auditDropped.Inc() }

// InventoryRestored counts a restored product.
func InventoryRestored(fulfillmentType string) {
	inventoryRestorations.WithLabelValues(fulfillmentType).Inc()
}

// FeatureTransition counts a feature entering status.
func FeatureTransition(status string) {
	featureTransitions.WithLabelValues(status).Inc()
}

// WorkerRun counts a background run of worker; outcome is "ok" or "error".
func WorkerRun(worker, outcome string) {
	workerRuns.WithLabelValues(worker, outcome).Inc()
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Handler returns the HTTP handler exporting the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

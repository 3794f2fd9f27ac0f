package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	StatusCodeCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"service", "category"},
	)

	SalesCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonledger_sales_committed_total",
			Help: "Sales written, by operation (create, edit, delete)",
		},
		[]string{"operation"},
	)

	StockReconciliationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonledger_stock_reconciliation_failures_total",
			Help: "Sale flows that left product stock needing manual reconciliation",
		},
		[]string{"operation", "step"},
	)

	AnalyticsCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonledger_analytics_cache_lookups_total",
			Help: "Analytics cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDurationHistogram,
			StatusCodeCategoryCounter,
			SalesCommitted,
			StockReconciliationFailures,
			AnalyticsCacheLookups,
		)
	})
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(service string, method string, path string, status int, elapsed time.Duration) {
	statusStr := strconv.Itoa(status)
	RequestCounter.WithLabelValues(service, method, path, statusStr).Inc()
	RequestDurationHistogram.WithLabelValues(service, method, path, statusStr).Observe(elapsed.Seconds())

	category := ""
	switch {
	case status >= 200 && status < 300:
		category = "2xx"
	case status >= 400 && status < 500:
		category = "4xx"
	case status >= 500 && status < 600:
		category = "5xx"
	}
	if category != "" {
		StatusCodeCategoryCounter.WithLabelValues(service, category).Inc()
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

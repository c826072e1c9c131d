// Package metrics provides Prometheus instrumentation for the risk scan service.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RiskFetchesTotal counts provider requests by outcome.
	RiskFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskscan",
			Name:      "risk_fetches_total",
			Help:      "Risk provider requests by result (success, failure).",
		},
		[]string{"result"},
	)

	// RiskFetchDuration observes provider latency.
	RiskFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "riskscan",
			Name:      "risk_fetch_duration_seconds",
			Help:      "Risk provider request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// RiskCacheLookupsTotal counts cache lookups by outcome (hit, miss, absent).
	RiskCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskscan",
			Name:      "risk_cache_lookups_total",
			Help:      "Risk cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	// RiskRetriesTotal counts user-triggered retries.
	RiskRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskscan",
			Name:      "risk_retries_total",
			Help:      "Manual invalidate-and-refetch operations.",
		},
	)

	// BadgeSessions tracks live websocket badge mounts.
	BadgeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "riskscan",
			Name:      "badge_sessions",
			Help:      "Currently connected badge sessions.",
		},
	)

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskscan",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RiskFetchesTotal,
		RiskFetchDuration,
		RiskCacheLookupsTotal,
		RiskRetriesTotal,
		BadgeSessions,
		HTTPRequestsTotal,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for the /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

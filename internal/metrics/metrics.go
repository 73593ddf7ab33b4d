// Package metrics owns the Prometheus collectors for the API process.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector. Construct once per registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	authAttempts        *prometheus.CounterVec
	rateLimitRejections *prometheus.CounterVec
	rateLimitErrors     *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Session authentication attempts by outcome (success or failure kind).",
		}, []string{"outcome"}),
		rateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter, by endpoint class.",
		}, []string{"class"}),
		rateLimitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_backend_errors_total",
			Help: "Rate limiter backend failures (request admitted), by endpoint class.",
		}, []string{"class"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	reg.MustRegister(m.authAttempts, m.rateLimitRejections, m.rateLimitErrors, m.httpRequests, m.httpDuration)
	return m
}

// AuthAttempt counts one session check.
func (m *Metrics) AuthAttempt(outcome string) {
	m.authAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RateLimited(class string) {
	m.rateLimitRejections.WithLabelValues(class).Inc()
}

func (m *Metrics) RateLimiterError(class string) {
	m.rateLimitErrors.WithLabelValues(class).Inc()
}

// Instrument records count and latency per route template.
func (m *Metrics) Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

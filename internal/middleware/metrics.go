package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xray_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xray_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xray_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)

	httpActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xray_http_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"method"},
	)
)

// MetricsConfig configures the metrics middleware
type MetricsConfig struct {
	// Skip function
	Skip func(*fiber.Ctx) bool
	// PathLabel returns the path label of a handled request
	PathLabel func(*fiber.Ctx) string
}

// DefaultMetricsConfig returns default metrics config
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Skip:      HealthSkipper,
		PathLabel: RoutePathLabel,
	}
}

// RoutePathLabel labels requests by the matched route template, so
// /api/executions/:id is one series rather than one per execution.
func RoutePathLabel(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}

// MetricsMiddleware creates a Prometheus metrics middleware
type MetricsMiddleware struct {
	config MetricsConfig
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(config MetricsConfig) *MetricsMiddleware {
	if config.PathLabel == nil {
		config.PathLabel = RoutePathLabel
	}
	return &MetricsMiddleware{
		config: config,
	}
}

// Handler returns the metrics handler
func (m *MetricsMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.config.Skip != nil && m.config.Skip(c) {
			return c.Next()
		}

		start := time.Now()
		method := c.Method()

		httpActiveRequests.WithLabelValues(method).Inc()
		defer httpActiveRequests.WithLabelValues(method).Dec()

		err := c.Next()

		// Route is only resolved once the handler chain has run
		path := m.config.PathLabel(c)
		status := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

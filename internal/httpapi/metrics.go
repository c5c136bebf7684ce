package httpapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-facing prometheus collectors.
type Metrics struct {
	registry      *prometheus.Registry
	requestsTotal *prometheus.CounterVec
	requestDur    *prometheus.HistogramVec
	turnsTotal    *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry so tests can run
// several servers in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mentord_http_requests_total",
			Help: "Total HTTP requests by method, endpoint, and status code.",
		}, []string{"method", "endpoint", "status"}),
		requestDur: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mentord_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by method and endpoint.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "endpoint"}),
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mentord_chat_turns_total",
			Help: "Chat turns processed by resolved intent.",
		}, []string{"intent"}),
	}
}

// Registry exposes the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware records request count and duration per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			// c.Path is the route template, so parameterized routes do not
			// explode label cardinality.
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "/"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			m.requestsTotal.WithLabelValues(method, endpoint, status).Inc()
			m.requestDur.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// CountTurn records one processed chat turn.
func (m *Metrics) CountTurn(intent string) {
	m.turnsTotal.WithLabelValues(intent).Inc()
}

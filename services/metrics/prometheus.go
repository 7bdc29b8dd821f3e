// Package metricsvc exposes the prometheus metrics of the API.
package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/cronograma/core/schedule"
)

const namespace = "cronograma"

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	weekLanes       prometheus.Histogram
	weekEvents      prometheus.Histogram
}

// New registers the API metrics, plus the go and process collectors, on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "Number of HTTP requests being served.",
		}),
		weekLanes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "week_row_lanes",
			Help:      "Number of lanes per subject row of the built weeks.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		}),
		weekEvents: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "week_events",
			Help:      "Number of events placed on the built weeks.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records every request under its route pattern.
// Errors are handed to the echo error handler first so the final status is recorded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			m.requestDuration.WithLabelValues(c.Request().Method, route, status).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(c.Request().Method, route, status).Inc()
			return nil
		}
	}
}

// ObserveWeek records the shape of a built week.
func (m *Metrics) ObserveWeek(view schedule.WeekView) {
	events := 0
	for _, row := range view.Rows {
		m.weekLanes.Observe(float64(row.Lanes))
		events += len(row.Bars)
	}
	m.weekEvents.Observe(float64(events))
}

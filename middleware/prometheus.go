package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "code"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	requestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "path"},
	)

	requestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_size_bytes",
			Help:    "Size of HTTP requests in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path", "code"},
	)

	responseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path", "code"},
	)

	errorRate = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_rate_total",
			Help: "Total number of HTTP errors",
		},
		[]string{"method", "path", "code"},
	)

	// Outbound calls to the remote users API
	usersAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_api_requests_total",
			Help: "Total number of requests sent to the users API",
		},
		[]string{"method", "code"},
	)

	usersAPIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "users_api_request_duration_seconds",
			Help:    "Duration of users API requests in seconds",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "code"},
	)

	usersAPIInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "users_api_requests_in_flight",
			Help: "Number of users API requests currently outstanding",
		},
	)
)

// InstrumentUsersAPI wraps the transport used for the remote users API with
// request counters, latency histograms and an in-flight gauge.
func InstrumentUsersAPI(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperInFlight(usersAPIInFlight,
		promhttp.InstrumentRoundTripperCounter(usersAPIRequests,
			promhttp.InstrumentRoundTripperDuration(usersAPIDuration, next),
		),
	)
}

// PrometheusMiddleware records request metrics for page and form routes,
// labelled by route template so /user/1 and /user/2 share a series.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isInfraPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		inFlight := requestsInFlight.WithLabelValues(method, route)
		inFlight.Inc()
		defer inFlight.Dec()

		c.Next()

		status := c.Writer.Status()
		code := strconv.Itoa(status)
		requestDuration.WithLabelValues(method, route, code).Observe(time.Since(start).Seconds())
		requestTotal.WithLabelValues(method, route, code).Inc()
		if c.Request.ContentLength > 0 {
			requestSize.WithLabelValues(method, route, code).Observe(float64(c.Request.ContentLength))
		}
		responseSize.WithLabelValues(method, route, code).Observe(float64(c.Writer.Size()))
		if status >= http.StatusInternalServerError {
			errorRate.WithLabelValues(method, route, code).Inc()
		}
	}
}

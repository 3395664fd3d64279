package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Reservation outcomes partitioned by result (success, conflict, rejected)
	reservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_reservations_total",
			Help: "Total number of reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Receipts expired by the sweeper
	receiptsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_receipts_expired_total",
			Help: "Total number of receipts expired by the sweeper",
		},
	)

	// Numbers released back to the pool by expiration
	numbersReleasedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_numbers_released_total",
			Help: "Total number of ledger entries released by expiration",
		},
	)
)

// Reservation outcome label values
const (
	ReservationOutcomeSuccess  = "success"
	ReservationOutcomeConflict = "conflict"
	ReservationOutcomeRejected = "rejected"
)

// RecordReservation counts one reservation attempt
func RecordReservation(outcome string) {
	reservationsTotal.WithLabelValues(outcome).Inc()
}

// RecordExpiration counts one swept receipt and its released numbers
func RecordExpiration(releasedNumbers int64) {
	receiptsExpiredTotal.Inc()
	numbersReleasedTotal.Add(float64(releasedNumbers))
}

// Metrics returns a Fiber v3 middleware that records basic Prometheus metrics.
// Labels are kept low-cardinality by using the matched route path when available.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		method := c.Method()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path // Use route template to avoid high cardinality
		}

		labels := prometheus.Labels{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments of the booking and payment flows.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	bookings        *prometheus.CounterVec
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	invoices        *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacebook_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spacebook_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacebook_booking_operations_total",
			Help: "Booking operations by operation and result.",
		}, []string{"operation", "result"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacebook_payment_gateway_calls_total",
			Help: "Payment gateway calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spacebook_payment_gateway_call_duration_seconds",
			Help:    "Payment gateway call latency including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacebook_invoice_issuance_total",
			Help: "Invoice issuance attempts by result (created or existing).",
		}, []string{"result"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacebook_payment_reconciliations_total",
			Help: "Payment confirmations by source and resulting state.",
		}, []string{"source", "state"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacebook_rate_limited_total",
			Help: "Requests rejected by the rate limiter by route.",
		}, []string{"route"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacebook_scheduler_job_runs_total",
			Help: "Background job runs by job and result (ok, error, timeout).",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spacebook_scheduler_job_duration_seconds",
			Help:    "Background job run latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}

	collectors := []prometheus.Collector{
		m.httpRequests, m.httpDuration, m.bookings, m.gatewayCalls,
		m.gatewayDuration, m.invoices, m.reconciliations, m.rateLimited,
		m.jobRuns, m.jobDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewDefault registers on the default Prometheus registry served by /metrics.
func NewDefault() (*Metrics, error) {
	return New(prometheus.DefaultRegisterer)
}

func (m *Metrics) BookingOperation(operation, result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) GatewayCall(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(operation, outcome).Inc()
	m.gatewayDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) InvoiceIssued(created bool) {
	if m == nil {
		return
	}
	result := "existing"
	if created {
		result = "created"
	}
	m.invoices.WithLabelValues(result).Inc()
}

func (m *Metrics) Reconciliation(source, state string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(source, state).Inc()
}

func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}

func (m *Metrics) SchedulerJob(job, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

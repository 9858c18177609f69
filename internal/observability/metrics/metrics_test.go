package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BookingOperation("create", "ok")
		m.GatewayCall("create_intent", "ok", time.Millisecond)
		m.InvoiceIssued(true)
		m.Reconciliation("api", "INVOICED")
		m.RateLimited("/bookings")
		m.SchedulerJob("reconcile_payments", "ok", time.Second)
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.BookingOperation("create", "conflict")
	m.BookingOperation("create", "conflict")
	m.InvoiceIssued(true)
	m.InvoiceIssued(false)
	m.InvoiceIssued(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookings.WithLabelValues("create", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invoices.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.invoices.WithLabelValues("existing")))
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestGinMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/bookings/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/42", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/bookings/:id", "204")))
}

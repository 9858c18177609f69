package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	agreementdomain "github.com/smallbiznis/spacebook/internal/agreement/domain"
	auditdomain "github.com/smallbiznis/spacebook/internal/audit/domain"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/internal/authorization"
	bookingdomain "github.com/smallbiznis/spacebook/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/spacebook/internal/catalog/domain"
	invoicedomain "github.com/smallbiznis/spacebook/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
	"github.com/smallbiznis/spacebook/internal/payment/gateway"
	"github.com/smallbiznis/spacebook/internal/reconciliation"
	"github.com/smallbiznis/spacebook/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	ErrorTypeConflict           = "conflict"
	ErrorTypeInvalidRange       = "invalid_range"
	ErrorTypeInvalidRequest     = "invalid_request"
	ErrorTypeNotFound           = "not_found"
	ErrorTypeUnauthorized       = "unauthorized"
	ErrorTypeUnauthenticated    = "unauthenticated"
	ErrorTypeRateLimited        = "rate_limited"
	ErrorTypeGatewayUnavailable = "gateway_unavailable"
	ErrorTypeGatewayRejected    = "gateway_rejected"
	ErrorTypeInternal           = "internal_error"
)

// gatewayRetryAfter is advertised when the payment gateway could not be reached.
const gatewayRetryAfter = 5 * time.Second

type errorPayload struct {
	Type          string `json:"type"`
	Message       string `json:"message"`
	State         string `json:"state,omitempty"`
	GatewayStatus string `json:"gateway_status,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

// RateLimitedError carries the wait a client should observe before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return "rate_limited"
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload, retryAfter := mapError(lastErr.Err)
		if retryAfter > 0 {
			c.Header("Retry-After", retryAfterSeconds(retryAfter))
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload, time.Duration) {
	var rateErr *RateLimitedError
	if errors.As(err, &rateErr) {
		return http.StatusTooManyRequests, errorPayload{
			Type:    ErrorTypeRateLimited,
			Message: "too many requests",
		}, rateErr.RetryAfter
	}

	var notConfirmed *reconciliation.NotConfirmedError
	if errors.As(err, &notConfirmed) {
		return http.StatusConflict, errorPayload{
			Type:          ErrorTypeConflict,
			Message:       "payment is not confirmed by the gateway",
			State:         string(notConfirmed.State),
			GatewayStatus: string(notConfirmed.GatewayStatus),
		}, 0
	}

	switch gateway.OutcomeOf(err) {
	case gateway.OutcomeRejected:
		return http.StatusConflict, errorPayload{
			Type:    ErrorTypeGatewayRejected,
			Message: "payment gateway rejected the request",
		}, 0
	case gateway.OutcomeUnknown:
		return http.StatusBadGateway, errorPayload{
			Type:    ErrorTypeGatewayUnavailable,
			Message: "payment gateway outcome unknown, retry the request",
		}, gatewayRetryAfter
	case gateway.OutcomeTransient:
		return http.StatusBadGateway, errorPayload{
			Type:    ErrorTypeGatewayUnavailable,
			Message: "payment gateway unavailable",
		}, gatewayRetryAfter
	}

	switch {
	case errors.Is(err, authdomain.ErrMissingCredential),
		errors.Is(err, authdomain.ErrInvalidCredential):
		return http.StatusUnauthorized, errorPayload{
			Type:    ErrorTypeUnauthenticated,
			Message: "missing or invalid credential",
		}, 0
	case errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, bookingdomain.ErrNotOwner),
		errors.Is(err, paymentdomain.ErrNotOwner),
		errors.Is(err, invoicedomain.ErrNotOwner):
		return http.StatusForbidden, errorPayload{
			Type:    ErrorTypeUnauthorized,
			Message: "not allowed",
		}, 0
	case errors.Is(err, bookingdomain.ErrBookingConflict):
		return http.StatusConflict, errorPayload{
			Type:    ErrorTypeConflict,
			Message: "the space is already booked for an overlapping time",
		}, 0
	case errors.Is(err, agreementdomain.ErrAlreadyAccepted):
		return http.StatusConflict, errorPayload{
			Type:    ErrorTypeConflict,
			Message: "agreement already accepted for this booking",
		}, 0
	case errors.Is(err, paymentdomain.ErrBookingNotPayable):
		return http.StatusConflict, errorPayload{
			Type:    ErrorTypeConflict,
			Message: "booking is not payable",
		}, 0
	case errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return http.StatusBadRequest, errorPayload{
			Type:    ErrorTypeInvalidRange,
			Message: "start_at must not be after end_at",
		}, 0
	case errors.Is(err, bookingdomain.ErrInvalidRange):
		return http.StatusBadRequest, errorPayload{
			Type:    ErrorTypeInvalidRange,
			Message: "end_time must be after start_time",
		}, 0
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, gateway.ErrWebhookSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}, 0
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    ErrorTypeNotFound,
			Message: "not found",
		}, 0
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    ErrorTypeInternal,
			Message: "internal server error",
		}, 0
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, catalogdomain.ErrSpaceNotFound),
		errors.Is(err, bookingdomain.ErrBookingNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog reports the response type an error maps to.
func classifyErrorForLog(err error) string {
	_, payload, _ := mapError(err)
	return payload.Type
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int64((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/spacebook/internal/audit/domain"
)

type createIntentRequest struct {
	BookingID string `json:"booking_id"`
}

func (s *Server) CreatePaymentIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	bookingID, err := parseSnowflakeID(req.BookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := s.paymentSvc.CreateIntent(c.Request.Context(), credentialFrom(c), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyPaid {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (s *Server) ConfirmPayment(c *gin.Context) {
	intentID := strings.TrimSpace(c.Param("intent_id"))
	if intentID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	res, err := s.coordinator.ConfirmPayment(c.Request.Context(), credentialFrom(c), intentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
		s.recordAudit(c, auditdomain.ActionInvoiceIssue, auditdomain.TargetInvoice, res.InvoiceID, map[string]any{
			"payment_intent_id": intentID,
			"source":            "confirm",
		})
	}
	c.JSON(status, res)
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	agreementdomain "github.com/smallbiznis/spacebook/internal/agreement/domain"
	auditdomain "github.com/smallbiznis/spacebook/internal/audit/domain"
)

type acceptAgreementRequest struct {
	BookingID string `json:"booking_id"`
}

func (s *Server) AcceptAgreement(c *gin.Context) {
	var req acceptAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	bookingID, err := parseSnowflakeID(req.BookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	acceptance, err := s.agreementSvc.Accept(c.Request.Context(), credentialFrom(c), agreementdomain.AcceptRequest{
		BookingID: bookingID,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionAgreementAccept, auditdomain.TargetBooking, acceptance.BookingID, map[string]any{
		"acceptance_id": acceptance.ID.String(),
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Agreement accepted",
		"accepted_at": acceptance.AcceptedAt,
	})
}

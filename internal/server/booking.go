package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/spacebook/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/spacebook/internal/booking/domain"
	"github.com/smallbiznis/spacebook/pkg/db/pagination"
)

type createBookingRequest struct {
	SpaceID   string `json:"space_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	TotalCost *int64 `json:"total_cost,omitempty"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	spaceID, err := parseSnowflakeID(req.SpaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	start, err := parseTime(req.StartTime)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseTime(req.EndTime)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	booking, err := s.bookingSvc.CreateBooking(c.Request.Context(), credentialFrom(c), bookingdomain.CreateBookingRequest{
		SpaceID:         spaceID,
		StartTime:       start,
		EndTime:         end,
		ClientTotalCost: req.TotalCost,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionBookingCreate, auditdomain.TargetBooking, booking.ID, map[string]any{
		"space_id":   booking.SpaceID.String(),
		"total_cost": booking.TotalCost,
	})

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

func (s *Server) CheckAvailability(c *gin.Context) {
	spaceID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	start, err := parseTime(c.Query("start_time"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseTime(c.Query("end_time"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	available, err := s.bookingSvc.CheckAvailability(c.Request.Context(), spaceID, start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": available})
}

func (s *Server) CancelBooking(c *gin.Context) {
	bookingID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	booking, err := s.bookingSvc.CancelBooking(c.Request.Context(), credentialFrom(c), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionBookingCancel, auditdomain.TargetBooking, booking.ID, map[string]any{
		"owner_id": booking.UserID.String(),
	})

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (s *Server) GetBooking(c *gin.Context) {
	bookingID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	booking, err := s.bookingSvc.GetBooking(c.Request.Context(), credentialFrom(c), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (s *Server) ListMyBookings(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.bookingSvc.ListMyBookings(c.Request.Context(), credentialFrom(c), bookingdomain.ListBookingsRequest{
		Pagination: query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

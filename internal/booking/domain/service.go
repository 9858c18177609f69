package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/pkg/db/pagination"
)

var (
	ErrInvalidRange    = errors.New("invalid_range")
	ErrBookingConflict = errors.New("booking_conflict")
	ErrBookingNotFound = errors.New("booking_not_found")
	ErrNotOwner        = errors.New("booking_not_owner")
)

type CreateBookingRequest struct {
	SpaceID   snowflake.ID
	StartTime time.Time
	EndTime   time.Time
	// ClientTotalCost carries a cost the client sent along. It is never used
	// for pricing; a mismatch is only logged.
	ClientTotalCost *int64
}

type ListBookingsRequest struct {
	pagination.Pagination
}

type ListBookingsResponse struct {
	pagination.PageInfo
	Bookings []Summary `json:"bookings"`
}

type Service interface {
	CreateBooking(ctx context.Context, cred authdomain.Credential, req CreateBookingRequest) (*Booking, error)
	CheckAvailability(ctx context.Context, spaceID snowflake.ID, start, end time.Time) (bool, error)
	CancelBooking(ctx context.Context, cred authdomain.Credential, bookingID snowflake.ID) (*Booking, error)
	GetBooking(ctx context.Context, cred authdomain.Credential, bookingID snowflake.ID) (*Booking, error)
	ListMyBookings(ctx context.Context, cred authdomain.Credential, req ListBookingsRequest) (*ListBookingsResponse, error)
}

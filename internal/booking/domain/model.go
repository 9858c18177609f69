package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatusUnpaid is reported for bookings without any payment attempt.
const PaymentStatusUnpaid = "unpaid"

// Booking reserves [StartTime, EndTime) on a space. Duration, cost and
// currency are fixed when the booking is created.
type Booking struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID          snowflake.ID `gorm:"not null;index:ix_bookings_user_created,priority:1" json:"user_id"`
	SpaceID         snowflake.ID `gorm:"not null;index:ix_bookings_space_window,priority:1" json:"space_id"`
	StartTime       time.Time    `gorm:"not null;index:ix_bookings_space_window,priority:3" json:"start_time"`
	EndTime         time.Time    `gorm:"not null" json:"end_time"`
	DurationMinutes int64        `gorm:"not null" json:"duration_minutes"`
	TotalCost       int64        `gorm:"not null" json:"total_cost"`
	Currency        string       `gorm:"type:varchar(3);not null" json:"currency"`
	Status          Status       `gorm:"type:varchar(16);not null;index:ix_bookings_space_window,priority:2" json:"status"`
	CreatedAt       time.Time    `gorm:"not null;index:ix_bookings_user_created,priority:2" json:"created_at"`
	CancelledAt     *time.Time   `json:"cancelled_at,omitempty"`
}

func (Booking) TableName() string { return "bookings" }

// Summary is a booking as listed to its owner.
type Summary struct {
	Booking
	SpaceName     string `json:"space_name"`
	PaymentStatus string `json:"payment_status"`
}

// Overlaps reports whether [start, end) intersects the booking window.
// Touching endpoints do not overlap.
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

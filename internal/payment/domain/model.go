package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusProcessing            Status = "processing"
	StatusSucceeded             Status = "succeeded"
	StatusCanceled              Status = "canceled"
	StatusFailed                Status = "failed"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusRequiresPaymentMethod, StatusProcessing, StatusSucceeded, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

func rank(s Status) int {
	switch s {
	case StatusRequiresPaymentMethod:
		return 0
	case StatusProcessing:
		return 1
	default:
		return 2
	}
}

// Transition returns the status a payment in current moves to when the
// gateway reports next. Statuses only move forward: terminal statuses are
// final and a report that does not outrank current is ignored.
func Transition(current, next Status) (Status, bool) {
	if !next.Valid() || current.IsTerminal() {
		return current, false
	}
	if rank(next) <= rank(current) {
		return current, false
	}
	return next, true
}

// Payment is one gateway payment attempt for a booking.
type Payment struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	BookingID        snowflake.ID      `gorm:"not null;index:ix_payments_booking_created,priority:1" json:"booking_id"`
	UserID           snowflake.ID      `gorm:"not null;index" json:"user_id"`
	AmountMinor      int64             `gorm:"not null" json:"amount_minor"`
	Currency         string            `gorm:"type:varchar(3);not null" json:"currency"`
	Status           Status            `gorm:"type:varchar(32);not null" json:"status"`
	ExternalIntentID string            `gorm:"type:varchar(255);not null;uniqueIndex:ux_payments_external_intent" json:"external_intent_id"`
	InvoiceID        *snowflake.ID     `json:"invoice_id,omitempty"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;index:ix_payments_booking_created,priority:2" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusIssued InvoiceStatus = "issued"
	InvoiceStatusPaid   InvoiceStatus = "paid"
	InvoiceStatusVoid   InvoiceStatus = "void"
)

// Invoice is issued once per booking, for the payment that settled it.
type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	BookingID     snowflake.ID  `gorm:"not null;uniqueIndex:ux_invoices_booking" json:"booking_id"`
	PaymentID     snowflake.ID  `gorm:"not null;index" json:"payment_id"`
	UserID        snowflake.ID  `gorm:"not null;index" json:"user_id"`
	InvoiceNumber string        `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoices_number" json:"invoice_number"`
	AmountMinor   int64         `gorm:"not null" json:"amount_minor"`
	Currency      string        `gorm:"type:varchar(3);not null" json:"currency"`
	Status        InvoiceStatus `gorm:"type:varchar(16);not null" json:"status"`
	IssuedAt      time.Time     `gorm:"not null" json:"issued_at"`
	DueAt         *time.Time    `json:"due_at,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceView is an invoice with the booking it bills.
type InvoiceView struct {
	Invoice
	SpaceName       string    `json:"space_name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int64     `json:"duration_minutes"`
}

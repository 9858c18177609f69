package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
)

var (
	ErrPaymentNotFound   = errors.New("payment_not_found")
	ErrNotOwner          = errors.New("payment_not_owner")
	ErrBookingNotPayable = errors.New("booking_not_payable")
)

// IntentResult is either a payable intent or a notice that the booking is
// already invoiced.
type IntentResult struct {
	ClientSecret    string        `json:"client_secret,omitempty"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	AlreadyPaid     bool          `json:"already_paid,omitempty"`
	InvoiceID       *snowflake.ID `json:"invoice_id,omitempty"`
}

type Service interface {
	CreateIntent(ctx context.Context, cred authdomain.Credential, bookingID snowflake.ID) (*IntentResult, error)
	// RefreshStatus fetches the gateway status of a payment and applies it
	// if it moves the payment forward.
	RefreshStatus(ctx context.Context, paymentID snowflake.ID) (*Payment, error)
	// ApplyStatus records a status already retrieved from the gateway.
	// Success is left to invoice issuance.
	ApplyStatus(ctx context.Context, paymentID snowflake.ID, reported Status) (*Payment, error)
}

package domain

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"gorm.io/gorm"
)

var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrNotOwner        = errors.New("invoice_not_owner")
)

// Issuer creates the single invoice of a booking.
type Issuer interface {
	// IssueOnce settles paymentID and returns the booking's invoice. created
	// is false when the invoice already existed; every caller sees the same id.
	IssueOnce(ctx context.Context, paymentID snowflake.ID) (inv *Invoice, created bool, err error)
}

type Service interface {
	Issuer
	FindByBooking(ctx context.Context, bookingID snowflake.ID) (*Invoice, error)
	GetInvoice(ctx context.Context, cred authdomain.Credential, invoiceID snowflake.ID) (*InvoiceView, error)
	RenderInvoicePDF(ctx context.Context, cred authdomain.Credential, invoiceID snowflake.ID) (io.Reader, *InvoiceView, error)
}

type Repository interface {
	// InsertUnique inserts inv unless the booking is already invoiced, in
	// which case the existing invoice is loaded into inv.
	InsertUnique(ctx context.Context, db *gorm.DB, inv *Invoice) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Invoice, error)
	FindView(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InvoiceView, error)
}

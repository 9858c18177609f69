package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/internal/authorization"
	"github.com/smallbiznis/spacebook/internal/clock"
	"github.com/smallbiznis/spacebook/internal/config"
	"github.com/smallbiznis/spacebook/internal/invoice/domain"
	"github.com/smallbiznis/spacebook/internal/invoice/format"
	"github.com/smallbiznis/spacebook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/spacebook/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
	"github.com/smallbiznis/spacebook/internal/providers/pdf"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   *config.PolicyHolder
	Repo     domain.Repository
	Payments paymentdomain.Repository
	Authz    authorization.Authorizer
	PDF      pdf.Provider
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	seller   string
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.PolicyHolder
	repo     domain.Repository
	payments paymentdomain.Repository
	authz    authorization.Authorizer
	pdf      pdf.Provider
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		seller:   p.Cfg.AppName,
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		repo:     p.Repo,
		payments: p.Payments,
		authz:    p.Authz,
		pdf:      p.PDF,
		metrics:  p.Metrics,
	}
}

func (s *Service) IssueOnce(ctx context.Context, paymentID snowflake.ID) (*domain.Invoice, bool, error) {
	policy := s.policy.Get().Invoice

	var (
		issued  domain.Invoice
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.payments.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrPaymentNotFound
		}

		if payment.InvoiceID != nil {
			existing, err := s.repo.FindByID(ctx, tx, *payment.InvoiceID)
			if err != nil {
				return err
			}
			if existing != nil {
				issued = *existing
				return nil
			}
		}

		now := s.clock.Now()
		id := s.genID.Generate()
		number, err := format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, policy.NumberPrefix, now, id)
		if err != nil {
			return err
		}

		issued = domain.Invoice{
			ID:            id,
			BookingID:     payment.BookingID,
			PaymentID:     payment.ID,
			UserID:        payment.UserID,
			InvoiceNumber: number,
			AmountMinor:   payment.AmountMinor,
			Currency:      payment.Currency,
			Status:        domain.InvoiceStatusIssued,
			IssuedAt:      now,
		}
		if policy.DueDays > 0 {
			due := now.AddDate(0, 0, policy.DueDays)
			issued.DueAt = &due
		}

		created, err = s.repo.InsertUnique(ctx, tx, &issued)
		if err != nil {
			return err
		}
		return s.payments.MarkSucceeded(ctx, tx, payment.ID, issued.ID)
	})
	if err != nil {
		return nil, false, err
	}

	s.metrics.InvoiceIssued(created)
	logger.WithContext(ctx, s.log).Info("invoice issued",
		zap.String("invoice_id", issued.ID.String()),
		zap.String("invoice_number", issued.InvoiceNumber),
		zap.String("booking_id", issued.BookingID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.Bool("created", created),
	)
	return &issued, created, nil
}

func (s *Service) FindByBooking(ctx context.Context, bookingID snowflake.ID) (*domain.Invoice, error) {
	return s.repo.FindByBookingID(ctx, s.db, bookingID)
}

func (s *Service) GetInvoice(ctx context.Context, cred authdomain.Credential, invoiceID snowflake.ID) (*domain.InvoiceView, error) {
	if cred.IsZero() {
		return nil, authdomain.ErrMissingCredential
	}
	view, err := s.repo.FindView(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	if cred.Owns(view.UserID) {
		return view, nil
	}
	err = s.authz.Authorize(ctx, cred, authorization.ObjectInvoice, authorization.ActionViewAny)
	if errors.Is(err, authorization.ErrForbidden) {
		return nil, domain.ErrNotOwner
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) RenderInvoicePDF(ctx context.Context, cred authdomain.Credential, invoiceID snowflake.ID) (io.Reader, *domain.InvoiceView, error) {
	view, err := s.GetInvoice(ctx, cred, invoiceID)
	if err != nil {
		return nil, nil, err
	}

	dueDate := "on receipt"
	if view.DueAt != nil {
		dueDate = view.DueAt.UTC().Format(time.DateOnly)
	}
	amountDue := view.AmountMinor
	if view.Status != domain.InvoiceStatusIssued {
		amountDue = 0
	}

	total := format.FormatAmount(view.AmountMinor, view.Currency)
	doc, err := s.pdf.GenerateInvoice(ctx, pdf.InvoiceData{
		SellerName:    s.seller,
		InvoiceNumber: view.InvoiceNumber,
		IssueDate:     view.IssuedAt.UTC().Format(time.DateOnly),
		DueDate:       dueDate,
		Status:        string(view.Status),
		BillToID:      view.UserID.String(),
		Items: []pdf.InvoiceItem{{
			Description: view.SpaceName,
			Period: fmt.Sprintf("%s - %s UTC",
				view.StartTime.UTC().Format("2006-01-02 15:04"),
				view.EndTime.UTC().Format("2006-01-02 15:04")),
			Duration: fmt.Sprintf("%d min", view.DurationMinutes),
			Amount:   total,
		}},
		Total:     total,
		AmountDue: format.FormatAmount(amountDue, view.Currency),
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, view, nil
}

var _ domain.Service = (*Service)(nil)

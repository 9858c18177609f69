package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	bookingdomain "github.com/smallbiznis/spacebook/internal/booking/domain"
	"github.com/smallbiznis/spacebook/internal/clock"
	invoicedomain "github.com/smallbiznis/spacebook/internal/invoice/domain"
	"github.com/smallbiznis/spacebook/internal/observability/logger"
	"github.com/smallbiznis/spacebook/internal/payment/domain"
	"github.com/smallbiznis/spacebook/internal/payment/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Bookings bookingdomain.Repository
	Invoices invoicedomain.Service
	Gateway  gateway.Gateway
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	bookings bookingdomain.Repository
	invoices invoicedomain.Service
	gateway  gateway.Gateway
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		bookings: p.Bookings,
		invoices: p.Invoices,
		gateway:  p.Gateway,
	}
}

// CreateIntent returns the payable intent of a booking. An open payment is
// reused after its gateway status has been refreshed; a new intent is only
// created when every earlier attempt is closed.
func (s *Service) CreateIntent(ctx context.Context, cred authdomain.Credential, bookingID snowflake.ID) (*domain.IntentResult, error) {
	if cred.UserID == 0 {
		return nil, authdomain.ErrMissingCredential
	}

	booking, err := s.bookings.FindByID(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}
	if !cred.Owns(booking.UserID) {
		return nil, domain.ErrNotOwner
	}
	if booking.Status != bookingdomain.StatusConfirmed {
		return nil, domain.ErrBookingNotPayable
	}

	inv, err := s.invoices.FindByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		return alreadyPaid(inv), nil
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("booking_id", booking.ID.String()))

	open, err := s.repo.LatestOpen(ctx, s.db, booking.ID, cred.UserID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		result, err := s.resume(ctx, log, booking, open)
		if err != nil || result != nil {
			return result, err
		}
	}

	return s.createIntent(ctx, log, booking)
}

// resume refreshes an open payment. A nil result means the attempt is closed
// and a new intent is needed.
func (s *Service) resume(ctx context.Context, log *zap.Logger, booking *bookingdomain.Booking, open *domain.Payment) (*domain.IntentResult, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, open.ExternalIntentID)
	if err != nil {
		return nil, err
	}

	status, err := s.apply(ctx, open, intent.Status)
	if err != nil {
		return nil, err
	}

	switch status {
	case domain.StatusSucceeded:
		inv, _, err := s.invoices.IssueOnce(ctx, open.ID)
		if err != nil {
			return nil, err
		}
		return alreadyPaid(inv), nil
	case domain.StatusCanceled, domain.StatusFailed:
		log.Info("open payment closed at gateway, creating a new intent",
			zap.String("payment_intent_id", open.ExternalIntentID),
			zap.String("status", string(status)),
		)
		return nil, nil
	}

	if intent.AmountMinor != booking.TotalCost || !strings.EqualFold(intent.Currency, booking.Currency) {
		intent, err = s.gateway.UpdateIntentAmount(ctx, intent.ID, booking.TotalCost, booking.Currency)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdateAmount(ctx, s.db, open.ID, booking.TotalCost); err != nil {
			return nil, err
		}
		log.Info("payment intent amount updated",
			zap.String("payment_intent_id", intent.ID),
			zap.Int64("amount_minor", booking.TotalCost),
		)
	}

	return &domain.IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

func (s *Service) createIntent(ctx context.Context, log *zap.Logger, booking *bookingdomain.Booking) (*domain.IntentResult, error) {
	closed, err := s.repo.CountClosed(ctx, s.db, booking.ID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("booking:%d:attempt:%d", booking.ID, closed+1)

	intent, err := s.gateway.CreateIntent(ctx, gateway.CreateIntentInput{
		AmountMinor: booking.TotalCost,
		Currency:    booking.Currency,
		Metadata: map[string]string{
			"booking_id": booking.ID.String(),
			"user_id":    booking.UserID.String(),
		},
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	payment := domain.Payment{
		ID:               s.genID.Generate(),
		BookingID:        booking.ID,
		UserID:           booking.UserID,
		AmountMinor:      booking.TotalCost,
		Currency:         booking.Currency,
		Status:           intent.Status,
		ExternalIntentID: intent.ID,
		Metadata: datatypes.JSONMap{
			"idempotency_key": key,
			"gateway_status":  string(intent.Status),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	inserted, err := s.repo.InsertUnique(ctx, s.db, &payment)
	if err != nil {
		return nil, err
	}

	log.Info("payment intent ready",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_intent_id", intent.ID),
		zap.String("idempotency_key", key),
		zap.Bool("inserted", inserted),
	)
	return &domain.IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

func (s *Service) RefreshStatus(ctx context.Context, paymentID snowflake.ID) (*domain.Payment, error) {
	payment, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.RetrieveIntent(ctx, payment.ExternalIntentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.apply(ctx, payment, intent.Status); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) ApplyStatus(ctx context.Context, paymentID snowflake.ID, reported domain.Status) (*domain.Payment, error) {
	payment, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.apply(ctx, payment, reported); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) find(ctx context.Context, paymentID snowflake.ID) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) apply(ctx context.Context, p *domain.Payment, reported domain.Status) (domain.Status, error) {
	next, changed := domain.Transition(p.Status, reported)
	if !changed || next == domain.StatusSucceeded {
		return next, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, s.db, p.ID, p.Status, next)
	if err != nil {
		return "", err
	}
	if !updated {
		fresh, err := s.repo.FindByID(ctx, s.db, p.ID)
		if err != nil {
			return "", err
		}
		if fresh == nil {
			return "", domain.ErrPaymentNotFound
		}
		// lost a race with another writer; statuses only move forward, so
		// re-evaluating against the fresh row terminates.
		*p = *fresh
		return s.apply(ctx, p, reported)
	}

	logger.WithContext(ctx, s.log).Info("payment status changed",
		zap.String("payment_id", p.ID.String()),
		zap.String("from", string(p.Status)),
		zap.String("to", string(next)),
	)
	p.Status = next
	return next, nil
}

func alreadyPaid(inv *invoicedomain.Invoice) *domain.IntentResult {
	id := inv.ID
	return &domain.IntentResult{AlreadyPaid: true, InvoiceID: &id}
}

var _ domain.Service = (*Service)(nil)

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/internal/authorization"
	"github.com/smallbiznis/spacebook/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/spacebook/internal/catalog/domain"
	"github.com/smallbiznis/spacebook/internal/clock"
	"github.com/smallbiznis/spacebook/internal/config"
	"github.com/smallbiznis/spacebook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/spacebook/internal/observability/metrics"
	pkgdb "github.com/smallbiznis/spacebook/pkg/db"
	"github.com/smallbiznis/spacebook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Policy  *config.PolicyHolder
	Catalog catalogdomain.Catalog
	Repo    domain.Repository
	Authz   authorization.Authorizer
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	policy  *config.PolicyHolder
	catalog catalogdomain.Catalog
	repo    domain.Repository
	authz   authorization.Authorizer
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("booking.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		policy:  p.Policy,
		catalog: p.Catalog,
		repo:    p.Repo,
		authz:   p.Authz,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateBooking(ctx context.Context, cred authdomain.Credential, req domain.CreateBookingRequest) (*domain.Booking, error) {
	if cred.UserID == 0 {
		return nil, authdomain.ErrMissingCredential
	}
	if req.SpaceID == 0 {
		return nil, catalogdomain.ErrSpaceNotFound
	}

	policy := s.policy.Get()
	start, end := domain.NormalizeWindow(req.StartTime, req.EndTime)
	minutes, err := domain.DurationMinutes(start, end)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckDuration(minutes, policy.Booking.MaxDurationMinutes); err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, s.log).With(
		zap.String("space_id", req.SpaceID.String()),
		zap.Time("start_time", start),
		zap.Time("end_time", end),
	)

	var created domain.Booking
	txOpts := pkgdb.TxOptions{
		Isolation: pkgdb.ParseIsolation(policy.Booking.Isolation),
		Retries:   policy.Booking.SerializationRetries,
	}
	err = pkgdb.RunInTransaction(ctx, s.db, txOpts, func(tx *gorm.DB) error {
		if err := pkgdb.LockRow(ctx, tx, catalogdomain.Space{}.TableName(), int64(req.SpaceID)); err != nil {
			return err
		}

		space, err := s.catalog.GetActiveSpace(ctx, tx, req.SpaceID)
		if err != nil {
			return err
		}

		overlap, err := s.repo.HasConfirmedOverlap(ctx, tx, space.ID, start, end)
		if err != nil {
			return err
		}
		if overlap {
			return domain.ErrBookingConflict
		}

		currency := strings.ToLower(strings.TrimSpace(space.Currency))
		if currency == "" {
			currency = policy.DefaultCurrency
		}

		totalCost, err := domain.TotalCost(space.RatePerHour, minutes)
		if err != nil {
			return err
		}

		created = domain.Booking{
			ID:              s.genID.Generate(),
			UserID:          cred.UserID,
			SpaceID:         space.ID,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: minutes,
			TotalCost:       totalCost,
			Currency:        currency,
			Status:          domain.StatusConfirmed,
			CreatedAt:       s.clock.Now(),
		}
		return s.repo.Insert(ctx, tx, &created)
	})
	if err != nil {
		if pkgdb.IsExclusionViolation(err) {
			err = domain.ErrBookingConflict
		}
		switch {
		case errors.Is(err, domain.ErrBookingConflict):
			s.metrics.BookingOperation("create", "conflict")
			log.Info("booking rejected, slot taken")
		case errors.Is(err, catalogdomain.ErrSpaceNotFound):
			s.metrics.BookingOperation("create", "not_found")
		case errors.Is(err, domain.ErrInvalidRange):
			s.metrics.BookingOperation("create", "invalid_range")
			log.Info("booking rejected, window cannot be priced", zap.Error(err))
		default:
			s.metrics.BookingOperation("create", "error")
			log.Error("create booking failed", zap.Error(err))
		}
		return nil, err
	}

	if req.ClientTotalCost != nil && *req.ClientTotalCost != created.TotalCost {
		log.Warn("client supplied total_cost ignored",
			zap.Int64("client_total_cost", *req.ClientTotalCost),
			zap.Int64("total_cost", created.TotalCost),
		)
	}

	s.metrics.BookingOperation("create", "created")
	log.Info("booking created",
		zap.String("booking_id", created.ID.String()),
		zap.Int64("duration_minutes", created.DurationMinutes),
		zap.Int64("total_cost", created.TotalCost),
	)
	return &created, nil
}

func (s *Service) CheckAvailability(ctx context.Context, spaceID snowflake.ID, startTime, endTime time.Time) (bool, error) {
	start, end := domain.NormalizeWindow(startTime, endTime)
	minutes, err := domain.DurationMinutes(start, end)
	if err != nil {
		return false, err
	}
	if err := domain.CheckDuration(minutes, s.policy.Get().Booking.MaxDurationMinutes); err != nil {
		return false, err
	}
	if _, err := s.catalog.GetActiveSpace(ctx, s.db, spaceID); err != nil {
		return false, err
	}

	overlap, err := s.repo.HasConfirmedOverlap(ctx, s.db, spaceID, start, end)
	if err != nil {
		return false, err
	}
	return !overlap, nil
}

func (s *Service) CancelBooking(ctx context.Context, cred authdomain.Credential, bookingID snowflake.ID) (*domain.Booking, error) {
	if cred.IsZero() {
		return nil, authdomain.ErrMissingCredential
	}

	var cancelled *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.repo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrBookingNotFound
		}
		if err := s.authorize(ctx, cred, booking, authorization.ActionCancelAny); err != nil {
			return err
		}

		if booking.Status == domain.StatusCancelled {
			cancelled = booking
			return nil
		}

		if err := s.repo.MarkCancelled(ctx, tx, booking.ID, s.clock.Now()); err != nil {
			return err
		}
		cancelled, err = s.repo.FindByID(ctx, tx, booking.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if cancelled == nil {
		return nil, domain.ErrBookingNotFound
	}

	s.metrics.BookingOperation("cancel", "cancelled")
	logger.WithContext(ctx, s.log).Info("booking cancelled",
		zap.String("booking_id", cancelled.ID.String()),
		zap.String("space_id", cancelled.SpaceID.String()),
	)
	return cancelled, nil
}

func (s *Service) GetBooking(ctx context.Context, cred authdomain.Credential, bookingID snowflake.ID) (*domain.Booking, error) {
	if cred.IsZero() {
		return nil, authdomain.ErrMissingCredential
	}
	booking, err := s.repo.FindByID(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrBookingNotFound
	}
	if err := s.authorize(ctx, cred, booking, authorization.ActionViewAny); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *Service) ListMyBookings(ctx context.Context, cred authdomain.Credential, req domain.ListBookingsRequest) (*domain.ListBookingsResponse, error) {
	if cred.UserID == 0 {
		return nil, authdomain.ErrMissingCredential
	}
	after, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return nil, err
	}

	limit := req.Limit()
	rows, err := s.repo.ListByUser(ctx, s.db, cred.UserID, after, limit+1)
	if err != nil {
		return nil, err
	}

	rows, pageInfo, err := pagination.Page(rows, limit, func(b domain.Summary) pagination.Cursor {
		return pagination.Cursor{ID: int64(b.ID), CreatedAt: b.CreatedAt}
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.Summary{}
	}
	return &domain.ListBookingsResponse{PageInfo: pageInfo, Bookings: rows}, nil
}

// authorize lets owners through and asks the policy for everyone else.
func (s *Service) authorize(ctx context.Context, cred authdomain.Credential, booking *domain.Booking, action string) error {
	if cred.Owns(booking.UserID) {
		return nil
	}
	err := s.authz.Authorize(ctx, cred, authorization.ObjectBooking, action)
	if errors.Is(err, authorization.ErrForbidden) {
		return domain.ErrNotOwner
	}
	return err
}

var _ domain.Service = (*Service)(nil)

package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/agreement/domain"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	bookingdomain "github.com/smallbiznis/spacebook/internal/booking/domain"
	"github.com/smallbiznis/spacebook/internal/clock"
	"github.com/smallbiznis/spacebook/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxIPAddressLen = 45

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Bookings bookingdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	bookings bookingdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("agreement.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		bookings: p.Bookings,
	}
}

// Accept records the owner's acceptance of the agreement for a booking.
// Only the booking owner may accept, and only once.
func (s *Service) Accept(ctx context.Context, cred authdomain.Credential, req domain.AcceptRequest) (*domain.Acceptance, error) {
	if cred.UserID == 0 {
		return nil, authdomain.ErrMissingCredential
	}
	if req.BookingID == 0 {
		return nil, bookingdomain.ErrBookingNotFound
	}

	booking, err := s.bookings.FindByID(ctx, s.db, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}
	if !cred.Owns(booking.UserID) {
		return nil, bookingdomain.ErrNotOwner
	}

	acceptance := domain.Acceptance{
		ID:         s.genID.Generate(),
		UserID:     cred.UserID,
		BookingID:  booking.ID,
		IPAddress:  normalizeIP(req.IPAddress),
		AcceptedAt: s.clock.Now().UTC(),
	}
	inserted, err := s.repo.InsertOnce(ctx, s.db, &acceptance)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, domain.ErrAlreadyAccepted
	}

	logger.WithContext(ctx, s.log).Info("agreement accepted",
		zap.String("booking_id", booking.ID.String()),
		zap.String("acceptance_id", acceptance.ID.String()),
	)
	return &acceptance, nil
}

func normalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if len(ip) > maxIPAddressLen {
		return ip[:maxIPAddressLen]
	}
	return ip
}

package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/agreement/domain"
	pkgdb "github.com/smallbiznis/spacebook/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertOnce(ctx context.Context, db *gorm.DB, a *domain.Acceptance) (bool, error) {
	return pkgdb.InsertUnique(ctx, db, a, "user_id", "booking_id")
}

func (r *repo) FindByBooking(ctx context.Context, db *gorm.DB, userID, bookingID snowflake.ID) (*domain.Acceptance, error) {
	var a domain.Acceptance
	err := db.WithContext(ctx).
		Where("user_id = ? AND booking_id = ?", userID, bookingID).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/payment/domain"
	pkgdb "github.com/smallbiznis/spacebook/pkg/db"
	"gorm.io/gorm"
)

var openStatuses = []domain.Status{
	domain.StatusRequiresPaymentMethod,
	domain.StatusProcessing,
}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertUnique(ctx context.Context, db *gorm.DB, p *domain.Payment) (bool, error) {
	return pkgdb.InsertUnique(ctx, db, p, "external_intent_id")
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return first(pkgdb.ForUpdate(db.WithContext(ctx)).Where("id = ?", id))
}

func (r *repo) FindByIntentID(ctx context.Context, db *gorm.DB, intentID string) (*domain.Payment, error) {
	if intentID == "" {
		return nil, nil
	}
	return first(db.WithContext(ctx).Where("external_intent_id = ?", intentID))
}

func (r *repo) LatestOpen(ctx context.Context, db *gorm.DB, bookingID, userID snowflake.ID) (*domain.Payment, error) {
	return first(db.WithContext(ctx).
		Where("booking_id = ? AND user_id = ?", bookingID, userID).
		Where("status IN ?", openStatuses).
		Order("created_at DESC, id DESC"))
}

func (r *repo) ListOpenCreatedBetween(ctx context.Context, db *gorm.DB, from, to time.Time, afterID snowflake.ID, limit int) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("status IN ?", openStatuses).
		Where("created_at >= ? AND created_at < ?", from, to).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *repo) CountClosed(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("booking_id = ?", bookingID).
		Where("status NOT IN ?", openStatuses).
		Count(&count).Error
	return count, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, expected, next domain.Status) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]any{
			"status":     next,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateAmount(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) error {
	return db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"amount_minor": amount,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *repo) MarkSucceeded(ctx context.Context, db *gorm.DB, id, invoiceID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.StatusSucceeded,
			"invoice_id": invoiceID,
			"updated_at": time.Now().UTC(),
		}).Error
}

func first(q *gorm.DB) (*domain.Payment, error) {
	var item domain.Payment
	err := q.Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

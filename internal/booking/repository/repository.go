package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/booking/domain"
	pkgdb "github.com/smallbiznis/spacebook/pkg/db"
	"github.com/smallbiznis/spacebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	return db.WithContext(ctx).Create(b).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	return r.find(pkgdb.ForUpdate(db.WithContext(ctx)), id)
}

func (r *repo) find(db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var item domain.Booking
	err := db.Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) HasConfirmedOverlap(ctx context.Context, db *gorm.DB, spaceID snowflake.ID, start, end time.Time) (bool, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("space_id = ? AND status = ?", spaceID, domain.StatusConfirmed).
		Where("start_time < ? AND end_time > ?", end, start).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, domain.StatusConfirmed).
		Updates(map[string]any{
			"status":       domain.StatusCancelled,
			"cancelled_at": at,
		}).Error
}

const listByUserSQL = `
SELECT b.*,
       COALESCE(s.name, '') AS space_name,
       COALESCE((
           SELECT p.status FROM payments p
           WHERE p.booking_id = b.id
           ORDER BY p.created_at DESC, p.id DESC
           LIMIT 1
       ), ?) AS payment_status
FROM bookings b
LEFT JOIN spaces s ON s.id = b.space_id
WHERE b.user_id = ?`

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, after *pagination.Cursor, limit int) ([]domain.Summary, error) {
	query := listByUserSQL
	args := []any{domain.PaymentStatusUnpaid, userID}
	if after != nil {
		query += ` AND (b.created_at < ? OR (b.created_at = ? AND b.id < ?))`
		args = append(args, after.CreatedAt, after.CreatedAt, after.ID)
	}
	query += ` ORDER BY b.created_at DESC, b.id DESC LIMIT ?`
	args = append(args, limit)

	var rows []domain.Summary
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

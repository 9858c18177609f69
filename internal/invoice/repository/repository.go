package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/invoice/domain"
	pkgdb "github.com/smallbiznis/spacebook/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertUnique(ctx context.Context, db *gorm.DB, inv *domain.Invoice) (bool, error) {
	return pkgdb.InsertUnique(ctx, db, inv, "booking_id")
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*domain.Invoice, error) {
	return first(db.WithContext(ctx).Where("booking_id = ?", bookingID))
}

func (r *repo) FindView(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InvoiceView, error) {
	var rows []domain.InvoiceView
	err := db.WithContext(ctx).Raw(`
SELECT i.*,
       COALESCE(s.name, '') AS space_name,
       b.start_time, b.end_time, b.duration_minutes
FROM invoices i
JOIN bookings b ON b.id = i.booking_id
LEFT JOIN spaces s ON s.id = b.space_id
WHERE i.id = ?`, id).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func first(q *gorm.DB) (*domain.Invoice, error) {
	var item domain.Invoice
	err := q.Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

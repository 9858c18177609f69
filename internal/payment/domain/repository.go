package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertUnique inserts p keyed on its external intent id. When another
	// row already holds the intent, it is loaded into p and false returned.
	InsertUnique(ctx context.Context, db *gorm.DB, p *Payment) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByIntentID(ctx context.Context, db *gorm.DB, intentID string) (*Payment, error)
	// LatestOpen returns the newest non-terminal payment of the booking for userID.
	LatestOpen(ctx context.Context, db *gorm.DB, bookingID, userID snowflake.ID) (*Payment, error)
	// ListOpenCreatedBetween pages through non-terminal payments created in
	// [from, to), ordered by id and starting after afterID.
	ListOpenCreatedBetween(ctx context.Context, db *gorm.DB, from, to time.Time, afterID snowflake.ID, limit int) ([]Payment, error)
	// CountClosed counts the booking's payments that reached a terminal status.
	CountClosed(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (int64, error)
	// UpdateStatus moves the payment from expected to next. It reports false
	// when the row no longer holds expected.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, expected, next Status) (bool, error)
	UpdateAmount(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) error
	MarkSucceeded(ctx context.Context, db *gorm.DB, id, invoiceID snowflake.ID) error
}

package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, b *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	// HasConfirmedOverlap checks confirmed bookings of spaceID against [start, end).
	HasConfirmedOverlap(ctx context.Context, db *gorm.DB, spaceID snowflake.ID, start, end time.Time) (bool, error)
	MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, after *pagination.Cursor, limit int) ([]Summary, error)
}

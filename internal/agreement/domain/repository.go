package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertOnce stores a unless the user already accepted for the booking.
	// On a repeat the stored acceptance is loaded into a and inserted is false.
	InsertOnce(ctx context.Context, db *gorm.DB, a *Acceptance) (inserted bool, err error)
	FindByBooking(ctx context.Context, db *gorm.DB, userID, bookingID snowflake.ID) (*Acceptance, error)
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrSpaceNotFound = errors.New("space_not_found")

// Space is a bookable resource. The catalog is maintained elsewhere; this
// service only reads it.
type Space struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Slug        string       `gorm:"type:varchar(160);not null;uniqueIndex:ux_spaces_slug" json:"slug"`
	RatePerHour int64        `gorm:"not null" json:"rate_per_hour"`
	Currency    string       `gorm:"type:varchar(3);not null" json:"currency"`
	IsActive    bool         `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (Space) TableName() string { return "spaces" }

// Catalog resolves spaces that can currently be booked.
type Catalog interface {
	// GetActiveSpace returns ErrSpaceNotFound for missing or inactive spaces.
	GetActiveSpace(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Space, error)
	// GetSpace returns the space regardless of its active flag, or nil.
	GetSpace(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Space, error)
}

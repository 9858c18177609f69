package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/smallbiznis/spacebook/internal/catalog/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type demoSpace struct {
	Name        string
	RatePerHour int64
}

var demoSpaces = []demoSpace{
	{Name: "Meeting Room A", RatePerHour: 1000},
	{Name: "Meeting Room B", RatePerHour: 1500},
	{Name: "Focus Booth", RatePerHour: 500},
	{Name: "Event Hall", RatePerHour: 7500},
}

// EnsureDemoSpaces inserts the demo catalog, skipping spaces whose slug
// already exists. It returns how many rows were inserted.
func EnsureDemoSpaces(ctx context.Context, db *gorm.DB, node *snowflake.Node, currency string) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "usd"
	}

	inserted := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, demo := range demoSpaces {
			space := catalogdomain.Space{
				ID:          node.Generate(),
				Name:        demo.Name,
				Slug:        slug.Make(demo.Name),
				RatePerHour: demo.RatePerHour,
				Currency:    currency,
				IsActive:    true,
				CreatedAt:   now,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoNothing: true,
			}).Create(&space)
			if res.Error != nil {
				return res.Error
			}
			inserted += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

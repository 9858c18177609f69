package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Catalog {
	return &repo{}
}

func (r *repo) GetActiveSpace(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Space, error) {
	space, err := r.GetSpace(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if space == nil || !space.IsActive {
		return nil, domain.ErrSpaceNotFound
	}
	return space, nil
}

func (r *repo) GetSpace(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Space, error) {
	if id == 0 {
		return nil, nil
	}
	var space domain.Space
	err := db.WithContext(ctx).Where("id = ?", id).Take(&space).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &space, nil
}

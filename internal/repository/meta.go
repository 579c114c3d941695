package repository

import (
	"context"
	"errors"

	"quill/internal/models"

	"gorm.io/gorm"
)

// MetaRepository serves the single-row instance settings record.
type MetaRepository interface {
	Get(ctx context.Context) (*models.Meta, error)
}

type metaRepository struct {
	db *gorm.DB
}

// NewMetaRepository creates a new meta repository.
func NewMetaRepository(db *gorm.DB) MetaRepository {
	return &metaRepository{db: db}
}

func (r *metaRepository) Get(ctx context.Context) (*models.Meta, error) {
	var meta models.Meta
	if err := r.db.WithContext(ctx).First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Missing settings row behaves as an instance with no policy lists.
			return &models.Meta{}, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &meta, nil
}

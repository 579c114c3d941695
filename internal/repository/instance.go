package repository

import (
	"context"
	"errors"
	"time"

	"quill/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstanceRepository tracks remote peers and their counters.
type InstanceRepository interface {
	// EnsureRegistered registers the host on first federation contact.
	// Reports whether this call created the record.
	EnsureRegistered(ctx context.Context, host string) (bool, error)
	IncrementNotes(ctx context.Context, host string) error
}

type instanceRepository struct {
	db *gorm.DB
}

// NewInstanceRepository creates a new instance repository.
func NewInstanceRepository(db *gorm.DB) InstanceRepository {
	return &instanceRepository{db: db}
}

func (r *instanceRepository) EnsureRegistered(ctx context.Context, host string) (bool, error) {
	inst := models.Instance{Host: host, FirstRetrievedAt: time.Now()}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&inst)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *instanceRepository) IncrementNotes(ctx context.Context, host string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Instance{}).
		Where("host = ?", host).
		UpdateColumn("notes_count", gorm.Expr("notes_count + 1")).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewInternalError(err)
	}
	return nil
}

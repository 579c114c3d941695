package repository

import (
	"context"
	"errors"
	"time"

	"quill/internal/models"

	"gorm.io/gorm"
)

// ChannelRepository defines the interface for channel data operations.
type ChannelRepository interface {
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	BumpLastNoted(ctx context.Context, id string, at time.Time) error
}

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new channel repository.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	var ch models.Channel
	if err := r.db.WithContext(ctx).First(&ch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("channel", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &ch, nil
}

func (r *channelRepository) BumpLastNoted(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id).
		UpdateColumn("last_noted_at", at).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

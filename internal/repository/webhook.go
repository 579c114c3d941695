package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// WebhookRepository defines the interface for webhook data operations.
type WebhookRepository interface {
	ListActiveByUser(ctx context.Context, userID string) ([]*models.Webhook, error)
}

type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new webhook repository.
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) ListActiveByUser(ctx context.Context, userID string) ([]*models.Webhook, error) {
	var hooks []*models.Webhook
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Find(&hooks).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return hooks, nil
}

package repositories

import (
	"context"

	"gorm.io/gorm"

	"opstower/internal/models/db_models"
)

type WebhookLogRepositoryInterface interface {
	Create(ctx context.Context, entry *db_models.WebhookDeliveryLog) error

	// ListFailures returns deliveries that did not apply cleanly, newest
	// first, for operator reconciliation.
	ListFailures(ctx context.Context, limit int) ([]db_models.WebhookDeliveryLog, error)
}

func NewWebhookLogRepository(db *gorm.DB) WebhookLogRepositoryInterface {
	return &WebhookLogRepository{db: db}
}

type WebhookLogRepository struct {
	db *gorm.DB
}

func (r *WebhookLogRepository) Create(ctx context.Context, entry *db_models.WebhookDeliveryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *WebhookLogRepository) ListFailures(ctx context.Context, limit int) ([]db_models.WebhookDeliveryLog, error) {
	var entries []db_models.WebhookDeliveryLog
	err := r.db.WithContext(ctx).
		Where("outcome NOT IN ?", []db_models.WebhookOutcome{
			db_models.WebhookOutcomeApplied,
			db_models.WebhookOutcomeAlreadyApplied,
		}).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"opstower/internal/models/db_models"
	"opstower/pkg/utils"
)

type RefundRepositoryInterface interface {
	Create(ctx context.Context, refund *db_models.Refund) error
	GetByRefundID(ctx context.Context, refundID string) (*db_models.Refund, error)
	ListByTransactionID(ctx context.Context, transactionID string) ([]db_models.Refund, error)

	// SumReserved returns the total refund amount already spoken for on a
	// transaction: processed refunds plus in-flight ones (pending, approved)
	// whose money may already be moving at the gateway. The remaining
	// refundable balance is checked against this figure.
	SumReserved(ctx context.Context, transactionID string) (decimal.Decimal, error)

	UpdateStatus(ctx context.Context, refundID string, status db_models.RefundStatus, processedBy, providerRefundID, failureReason *string) error
}

func NewRefundRepository(db *gorm.DB) RefundRepositoryInterface {
	return &RefundRepository{db: db}
}

type RefundRepository struct {
	db *gorm.DB
}

func (r *RefundRepository) Create(ctx context.Context, refund *db_models.Refund) error {
	if err := r.db.WithContext(ctx).Create(refund).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *RefundRepository) GetByRefundID(ctx context.Context, refundID string) (*db_models.Refund, error) {
	var refund db_models.Refund
	err := r.db.WithContext(ctx).Where("refund_id = ?", refundID).First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

func (r *RefundRepository) ListByTransactionID(ctx context.Context, transactionID string) ([]db_models.Refund, error) {
	var refunds []db_models.Refund
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *RefundRepository) SumReserved(ctx context.Context, transactionID string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&db_models.Refund{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("transaction_id = ? AND status IN ?", transactionID, []db_models.RefundStatus{
			db_models.RefundStatusPending,
			db_models.RefundStatusApproved,
			db_models.RefundStatusProcessed,
		}).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *RefundRepository) UpdateStatus(ctx context.Context, refundID string, status db_models.RefundStatus, processedBy, providerRefundID, failureReason *string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().Unix(),
	}
	if status == db_models.RefundStatusProcessed {
		updates["processed_at"] = time.Now().Unix()
	}
	if processedBy != nil {
		updates["processed_by"] = *processedBy
	}
	if providerRefundID != nil {
		updates["provider_refund_id"] = *providerRefundID
	}
	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}

	res := r.db.WithContext(ctx).
		Model(&db_models.Refund{}).
		Where("refund_id = ?", refundID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrRefundNotFound
	}
	return nil
}

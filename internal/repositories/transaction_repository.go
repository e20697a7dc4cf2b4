package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"opstower/internal/models/db_models"
	"opstower/pkg/utils"
)

type TransactionRepositoryInterface interface {
	Create(ctx context.Context, txn *db_models.Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*db_models.Transaction, error)
	GetByProviderTxnID(ctx context.Context, provider db_models.PaymentProvider, providerTxnID string) (*db_models.Transaction, error)
	AttachProviderTxnID(ctx context.Context, transactionID, providerTxnID string) error

	// ApplyStatusTransition is the single mutation entry point for transaction
	// status. It enforces the state machine and the dedupe-key-once rule in one
	// database transaction. Illegal transitions and replays come back as
	// utils.ErrIllegalTransition / utils.ErrAlreadyApplied so callers can treat
	// them as no-ops.
	ApplyStatusTransition(ctx context.Context, transactionID string, newStatus db_models.TransactionStatus, occurredAt time.Time, dedupeKey string, failureReason *string) (*db_models.Transaction, error)

	ListExpiredPending(ctx context.Context, cutoff int64, limit int) ([]db_models.Transaction, error)
}

func NewTransactionRepository(db *gorm.DB) TransactionRepositoryInterface {
	return &TransactionRepository{db: db}
}

type TransactionRepository struct {
	db *gorm.DB
}

func (r *TransactionRepository) Create(ctx context.Context, txn *db_models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *TransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) GetByProviderTxnID(ctx context.Context, provider db_models.PaymentProvider, providerTxnID string) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_txn_id = ?", provider, providerTxnID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) AttachProviderTxnID(ctx context.Context, transactionID, providerTxnID string) error {
	return r.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Where("transaction_id = ? AND provider_txn_id IS NULL", transactionID).
		Update("provider_txn_id", providerTxnID).Error
}

func (r *TransactionRepository) ApplyStatusTransition(ctx context.Context, transactionID string, newStatus db_models.TransactionStatus, occurredAt time.Time, dedupeKey string, failureReason *string) (*db_models.Transaction, error) {
	var out *db_models.Transaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Check-and-insert the dedupe key first. The unique index turns a
		// replayed delivery into a constraint violation before any state is
		// touched, so re-delivery is a safe no-op.
		if dedupeKey != "" {
			key := db_models.AppliedWebhookKey{
				TransactionID: transactionID,
				DedupeKey:     dedupeKey,
			}
			if err := tx.Create(&key).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return utils.ErrAlreadyApplied
				}
				return err
			}
		}

		var txn db_models.Transaction
		if err := tx.Where("transaction_id = ?", transactionID).First(&txn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrTransactionNotFound
			}
			return err
		}

		if txn.Status == newStatus {
			return utils.ErrAlreadyApplied
		}
		if !db_models.CanTransition(txn.Status, newStatus) {
			return utils.ErrIllegalTransition
		}

		updates := map[string]interface{}{
			"status":     newStatus,
			"updated_at": time.Now().Unix(),
		}
		if newStatus == db_models.TxnStatusCompleted {
			updates["completed_at"] = occurredAt.Unix()
		}
		if failureReason != nil {
			updates["failure_reason"] = *failureReason
		}

		// Conditional single-row update guards against a transition racing in
		// between the read and the write.
		res := tx.Model(&db_models.Transaction{}).
			Where("transaction_id = ? AND status = ?", transactionID, txn.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrIllegalTransition
		}

		txn.Status = newStatus
		if newStatus == db_models.TxnStatusCompleted {
			at := occurredAt.Unix()
			txn.CompletedAt = &at
		}
		if failureReason != nil {
			txn.FailureReason = failureReason
		}
		out = &txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TransactionRepository) ListExpiredPending(ctx context.Context, cutoff int64, limit int) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?",
			[]db_models.TransactionStatus{db_models.TxnStatusPending, db_models.TxnStatusProcessing}, cutoff).
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

package db_models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentProvider string

const (
	ProviderMaya  PaymentProvider = "maya"
	ProviderGCash PaymentProvider = "gcash"
	ProviderCash  PaymentProvider = "cash"
)

func (p PaymentProvider) Valid() bool {
	switch p {
	case ProviderMaya, ProviderGCash, ProviderCash:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxnStatusPending       TransactionStatus = "pending"
	TxnStatusProcessing    TransactionStatus = "processing"
	TxnStatusCompleted     TransactionStatus = "completed"
	TxnStatusFailed        TransactionStatus = "failed"
	TxnStatusCancelled     TransactionStatus = "cancelled"
	TxnStatusExpired       TransactionStatus = "expired"
	TxnStatusRefundPending TransactionStatus = "refund_pending"
	TxnStatusRefunded      TransactionStatus = "refunded"
)

// legalTransitions encodes the forward-only state machine. Anything not
// listed here is rejected by ApplyStatusTransition, which keeps duplicate
// and out-of-order webhook deliveries convergent regardless of arrival order.
var legalTransitions = map[TransactionStatus][]TransactionStatus{
	TxnStatusPending:    {TxnStatusProcessing, TxnStatusCompleted, TxnStatusFailed, TxnStatusCancelled, TxnStatusExpired},
	TxnStatusProcessing: {TxnStatusCompleted, TxnStatusFailed, TxnStatusCancelled, TxnStatusExpired},
	TxnStatusCompleted:  {TxnStatusRefundPending},
	// refund_pending rolls back to completed when the gateway rejects the
	// refund; the parent transaction stays successfully paid.
	TxnStatusRefundPending: {TxnStatusRefunded, TxnStatusCompleted},
}

func CanTransition(from, to TransactionStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(s TransactionStatus) bool {
	switch s {
	case TxnStatusCompleted, TxnStatusFailed, TxnStatusCancelled, TxnStatusExpired, TxnStatusRefunded:
		return true
	}
	return false
}

type Transaction struct {
	BaseModel
	TransactionID   string `gorm:"uniqueIndex;size:64"` // caller-visible, immutable
	ReferenceNumber string `gorm:"uniqueIndex;size:64"`

	Amount   decimal.Decimal `gorm:"type:numeric(14,2)"` // immutable after creation
	Currency string          `gorm:"size:3"`             // ISO 4217, default PHP

	Provider PaymentProvider   `gorm:"size:16;uniqueIndex:idx_provider_txn"`
	Status   TransactionStatus `gorm:"index;size:24"`

	// Assigned by the gateway once checkout is created. Exactly one
	// transaction per (provider, provider_txn_id) once set; NULL until the
	// gateway responds, and NULLs stay distinct under the unique index.
	ProviderTxnID *string `gorm:"size:128;uniqueIndex:idx_provider_txn"`

	Description string
	UserID      string  `gorm:"index;size:64"`
	UserType    string  `gorm:"size:32"`
	BookingID   *string `gorm:"index;size:64"`

	ExpiresAt     *int64
	CompletedAt   *int64
	FailureReason *string

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

// AppliedWebhookKey records gateway dedupe keys already applied to a
// transaction. The unique index makes check-and-insert a single conditional
// write, so a replayed delivery can never effect a second state change.
type AppliedWebhookKey struct {
	BaseModel
	TransactionID string `gorm:"uniqueIndex:idx_txn_dedupe;size:64"`
	DedupeKey     string `gorm:"uniqueIndex:idx_txn_dedupe;size:128"`
}

func (AppliedWebhookKey) TableName() string { return "applied_webhook_keys" }

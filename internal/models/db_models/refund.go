package db_models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusApproved  RefundStatus = "approved"
	RefundStatusProcessed RefundStatus = "processed"
	RefundStatusRejected  RefundStatus = "rejected"
	RefundStatusFailed    RefundStatus = "failed"
)

func RefundStatusTerminal(s RefundStatus) bool {
	switch s {
	case RefundStatusProcessed, RefundStatusRejected, RefundStatusFailed:
		return true
	}
	return false
}

type Refund struct {
	BaseModel
	RefundID      string `gorm:"uniqueIndex;size:64"`
	TransactionID string `gorm:"index;size:64"` // parent transaction, exactly one

	Amount decimal.Decimal `gorm:"type:numeric(14,2)"`
	Reason string

	Status RefundStatus `gorm:"index;size:16"`

	RequestedBy string  `gorm:"size:64"`
	ApprovedBy  *string `gorm:"size:64"`
	ProcessedBy *string `gorm:"size:64"`

	ProviderRefundID *string `gorm:"size:128"`

	ApprovedAt    *int64
	ProcessedAt   *int64
	FailureReason *string

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

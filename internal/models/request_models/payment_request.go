package request_models

import (
	"github.com/shopspring/decimal"

	"opstower/internal/models/db_models"
)

type InitiatePaymentRequest struct {
	Amount            decimal.Decimal            `json:"amount" binding:"required"`
	Currency          string                     `json:"currency"`
	Description       string                     `json:"description" binding:"required"`
	UserID            string                     `json:"user_id" binding:"required"`
	UserType          string                     `json:"user_type" binding:"required"`
	CustomerName      string                     `json:"customer_name" binding:"required"`
	CustomerEmail     string                     `json:"customer_email" binding:"required,email"`
	CustomerPhone     string                     `json:"customer_phone"`
	BookingID         *string                    `json:"booking_id"`
	PreferredProvider db_models.PaymentProvider  `json:"preferred_provider"`
	SuccessURL        string                     `json:"success_url" binding:"required,url"`
	FailureURL        string                     `json:"failure_url" binding:"required,url"`
	Metadata          map[string]string          `json:"metadata"`
}

type RefundRequest struct {
	TransactionID string            `json:"transaction_id" binding:"required"`
	Amount        *decimal.Decimal  `json:"amount"` // omitted = full remaining balance
	Reason        string            `json:"reason" binding:"required"`
	RequestedBy   string            `json:"requested_by" binding:"required"`
	Metadata      map[string]string `json:"metadata"`
}

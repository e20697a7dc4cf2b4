package response_models

import (
	"github.com/shopspring/decimal"

	"opstower/internal/models/db_models"
)

type InitiatePaymentResponse struct {
	TransactionID   string                      `json:"transaction_id"`
	ReferenceNumber string                      `json:"reference_number"`
	Provider        db_models.PaymentProvider   `json:"provider"`
	Status          db_models.TransactionStatus `json:"status"`
	RedirectURL     string                      `json:"redirect_url,omitempty"`
	ExpiresAt       string                      `json:"expires_at,omitempty"` // RFC3339, PH time
}

type PaymentStatusResponse struct {
	TransactionID   string                      `json:"transaction_id"`
	ReferenceNumber string                      `json:"reference_number"`
	Provider        db_models.PaymentProvider   `json:"provider"`
	Status          db_models.TransactionStatus `json:"status"`
	Amount          decimal.Decimal             `json:"amount"`
	Currency        string                      `json:"currency"`
	CreatedAt       string                      `json:"created_at"`
	UpdatedAt       string                      `json:"updated_at"`
	CompletedAt     string                      `json:"completed_at,omitempty"`
	FailureReason   string                      `json:"failure_reason,omitempty"`
}

type RefundResponse struct {
	RefundID      string                 `json:"refund_id"`
	TransactionID string                 `json:"transaction_id"`
	Amount        decimal.Decimal        `json:"amount"`
	Status        db_models.RefundStatus `json:"status"`
}

type WebhookAck struct {
	Outcome       string `json:"outcome"`
	TransactionID string `json:"transaction_id,omitempty"`
}

package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"opstower/internal/models/db_models"
)

// PaymentIntent is the provider-neutral initiation request. Adapters translate
// it into whatever the gateway's checkout API expects.
type PaymentIntent struct {
	TransactionID   string
	ReferenceNumber string
	Amount          decimal.Decimal
	Currency        string
	Description     string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	SuccessURL      string
	FailureURL      string
	Metadata        map[string]string
}

type InitiationResult struct {
	ProviderTxnID string
	RedirectURL   string
	ExpiresAt     time.Time
}

// NormalizedEvent is the universal language of the webhook path: no matter
// which gateway delivered the notification, the orchestrator only ever sees
// this shape.
type NormalizedEvent struct {
	ProviderTxnID string
	NewStatus     db_models.TransactionStatus
	OccurredAt    time.Time
	DedupeKey     string
	FailureReason string
}

type ProviderStatus struct {
	Status    db_models.TransactionStatus
	RawStatus string
}

type RefundResult struct {
	ProviderRefundID string
	Status           db_models.RefundStatus
	RawStatus        string
}

// Gateway is implemented once per provider. Adapters translate and validate
// only; they never retry (duplicate-charge risk belongs to the orchestrator's
// policy) and never persist state.
type Gateway interface {
	Provider() db_models.PaymentProvider

	// Initiate sends the checkout request with a bounded timeout. Error
	// classes: utils.ErrValidation (rejected before calling out),
	// utils.ErrProviderRejected (gateway 4xx, not retryable),
	// utils.ErrProviderUnavailable (5xx/timeout, retryable by caller policy).
	Initiate(ctx context.Context, intent PaymentIntent) (*InitiationResult, error)

	// VerifyWebhookSignature must use a constant-time comparison. A false
	// return short-circuits all processing for the payload.
	VerifyWebhookSignature(body []byte, header http.Header) bool

	// ParseWebhookEvent returns one event per payment the notification
	// settles. EBANX batches several hashes into a single delivery; Maya
	// notifications always carry exactly one.
	ParseWebhookEvent(body []byte) ([]NormalizedEvent, error)

	// QueryStatus is the synchronous poll used for manual reconciliation.
	QueryStatus(ctx context.Context, providerTxnID string) (*ProviderStatus, error)

	Refund(ctx context.Context, providerTxnID string, amount decimal.Decimal, reason string) (*RefundResult, error)
}

// VerifyHexHMAC checks a hex-encoded HMAC-SHA256 signature of body under
// secret. hmac.Equal keeps the comparison constant-time.
func VerifyHexHMAC(body []byte, secret, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

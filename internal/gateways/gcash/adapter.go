package gcash

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"opstower/internal/gateways"
	"opstower/internal/models/db_models"
	"opstower/pkg/utils"
)

// GCash acquiring runs through EBANX. EBANX answers HTTP 200 even for business
// rejections and signals them in-band with status=ERROR, so the adapter has to
// look inside every response envelope.
type Config struct {
	BaseURL        string // e.g. https://api.ebanxpay.com
	IntegrationKey string
	WebhookSecret  string // HMAC key for X-Ebanx-Signature
	CheckoutTTL    time.Duration
	Timeout        time.Duration
}

type Adapter struct {
	cfg    Config
	client *http.Client
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.CheckoutTTL <= 0 {
		cfg.CheckoutTTL = time.Hour
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (a *Adapter) Provider() db_models.PaymentProvider { return db_models.ProviderGCash }

type requestEnvelope struct {
	IntegrationKey string         `json:"integration_key"`
	Operation      string         `json:"operation"`
	Payment        map[string]any `json:"payment,omitempty"`
	Hash           string         `json:"hash,omitempty"`
	Amount         string         `json:"amount,omitempty"`
	Description    string         `json:"description,omitempty"`
}

type responseEnvelope struct {
	Status        string `json:"status"` // SUCCESS | ERROR
	StatusCode    string `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Payment       struct {
		Hash        string `json:"hash"`
		RedirectURL string `json:"redirect_url"`
		Status      string `json:"status"`
	} `json:"payment"`
	Refund struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"refund"`
}

func (a *Adapter) Initiate(ctx context.Context, intent gateways.PaymentIntent) (*gateways.InitiationResult, error) {
	if intent.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", utils.ErrValidation)
	}
	if intent.CustomerName == "" || intent.CustomerEmail == "" {
		return nil, fmt.Errorf("%w: EBANX requires customer name and email", utils.ErrValidation)
	}

	env := requestEnvelope{
		IntegrationKey: a.cfg.IntegrationKey,
		Operation:      "request",
		Payment: map[string]any{
			"name":                  intent.CustomerName,
			"email":                 intent.CustomerEmail,
			"phone_number":          intent.CustomerPhone,
			"amount_total":          intent.Amount,
			"currency_code":         intent.Currency,
			"merchant_payment_code": intent.ReferenceNumber,
			"payment_type_code":     "gcash",
			"redirect_url":          intent.SuccessURL,
			"failure_url":           intent.FailureURL,
			"note":                  intent.Description,
		},
	}

	resp, err := a.doRequest(ctx, "/ws/request", env)
	if err != nil {
		return nil, err
	}
	if resp.Payment.Hash == "" || resp.Payment.RedirectURL == "" {
		return nil, fmt.Errorf("%w: ebanx returned an incomplete payment", utils.ErrProviderRejected)
	}

	return &gateways.InitiationResult{
		ProviderTxnID: resp.Payment.Hash,
		RedirectURL:   resp.Payment.RedirectURL,
		ExpiresAt:     time.Now().Add(a.cfg.CheckoutTTL),
	}, nil
}

func (a *Adapter) VerifyWebhookSignature(body []byte, header http.Header) bool {
	return gateways.VerifyHexHMAC(body, a.cfg.WebhookSecret, header.Get("X-Ebanx-Signature"))
}

type webhookPayload struct {
	Operation  string   `json:"operation"`
	HashCodes  []string `json:"hash_codes"`
	Status     string   `json:"status"`
	OccurredAt string   `json:"occurred_at"`
	Reason     string   `json:"reason"`
}

// ParseWebhookEvent fans a notification out into one event per hash: EBANX
// batches every payment settled since the last delivery into hash_codes.
func (a *Adapter) ParseWebhookEvent(body []byte) ([]gateways.NormalizedEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("ebanx webhook payload: %w", err)
	}
	if len(payload.HashCodes) == 0 {
		return nil, fmt.Errorf("ebanx webhook missing hash_codes")
	}

	status, ok := mapStatus(payload.Status)
	if !ok {
		return nil, fmt.Errorf("ebanx webhook carries unknown status %q", payload.Status)
	}

	occurredAt := time.Now()
	if payload.OccurredAt != "" {
		if t, err := time.Parse(time.RFC3339, payload.OccurredAt); err == nil {
			occurredAt = t
		}
	}

	keyPrefix := payload.Operation
	if keyPrefix == "" {
		sum := sha256.Sum256(body)
		keyPrefix = hex.EncodeToString(sum[:])
	}

	events := make([]gateways.NormalizedEvent, 0, len(payload.HashCodes))
	for _, hash := range payload.HashCodes {
		if hash == "" {
			continue
		}
		events = append(events, gateways.NormalizedEvent{
			ProviderTxnID: hash,
			NewStatus:     status,
			OccurredAt:    occurredAt,
			DedupeKey:     keyPrefix + ":" + hash,
			FailureReason: payload.Reason,
		})
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("ebanx webhook carries only empty hash_codes")
	}
	return events, nil
}

func (a *Adapter) QueryStatus(ctx context.Context, providerTxnID string) (*gateways.ProviderStatus, error) {
	env := requestEnvelope{
		IntegrationKey: a.cfg.IntegrationKey,
		Operation:      "query",
		Hash:           providerTxnID,
	}
	resp, err := a.doRequest(ctx, "/ws/query", env)
	if err != nil {
		return nil, err
	}
	status, ok := mapStatus(resp.Payment.Status)
	if !ok {
		return nil, fmt.Errorf("%w: ebanx reported unknown status %q", utils.ErrProviderRejected, resp.Payment.Status)
	}
	return &gateways.ProviderStatus{Status: status, RawStatus: resp.Payment.Status}, nil
}

func (a *Adapter) Refund(ctx context.Context, providerTxnID string, amount decimal.Decimal, reason string) (*gateways.RefundResult, error) {
	env := requestEnvelope{
		IntegrationKey: a.cfg.IntegrationKey,
		Operation:      "request",
		Hash:           providerTxnID,
		Amount:         amount.StringFixed(2),
		Description:    reason,
	}
	resp, err := a.doRequest(ctx, "/ws/refund", env)
	if err != nil {
		return nil, err
	}

	result := &gateways.RefundResult{ProviderRefundID: resp.Refund.ID, RawStatus: resp.Refund.Status}
	switch strings.ToUpper(resp.Refund.Status) {
	case "RE", "REFUNDED", "SUCCESS":
		result.Status = db_models.RefundStatusProcessed
	case "NO", "FAILED", "CANCELLED":
		result.Status = db_models.RefundStatusFailed
	default:
		result.Status = db_models.RefundStatusApproved
	}
	return result, nil
}

func (a *Adapter) doRequest(ctx context.Context, path string, env requestEnvelope) (*responseEnvelope, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ebanx: %v", utils.ErrProviderUnavailable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: ebanx: reading response: %v", utils.ErrProviderUnavailable, err)
	}

	switch {
	case httpResp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: ebanx returned %d", utils.ErrProviderUnavailable, httpResp.StatusCode)
	case httpResp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: ebanx returned %d", utils.ErrProviderRejected, httpResp.StatusCode)
	}

	var resp responseEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: ebanx response decode: %v", utils.ErrProviderRejected, err)
	}
	if strings.ToUpper(resp.Status) == "ERROR" {
		return nil, fmt.Errorf("%w: ebanx %s: %s", utils.ErrProviderRejected, resp.StatusCode, resp.StatusMessage)
	}
	return &resp, nil
}

// EBANX two-letter payment status codes.
func mapStatus(raw string) (db_models.TransactionStatus, bool) {
	switch strings.ToUpper(raw) {
	case "CO", "CONFIRMED", "PAID", "SUCCESS":
		return db_models.TxnStatusCompleted, true
	case "CA", "FAILED", "DECLINED", "ERROR":
		return db_models.TxnStatusFailed, true
	case "VO", "VOIDED", "CANCELLED", "CANCELED":
		return db_models.TxnStatusCancelled, true
	case "EX", "EXPIRED":
		return db_models.TxnStatusExpired, true
	case "RF", "REFUNDED":
		return db_models.TxnStatusRefunded, true
	case "PE", "OP", "PENDING", "OPEN", "PROCESSING", "WAITING":
		return db_models.TxnStatusProcessing, true
	}
	return "", false
}

package maya

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
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

type Config struct {
	BaseURL       string // e.g. https://pg.paymaya.com or the sandbox host
	PublicKey     string // checkout creation auth
	SecretKey     string // status/refund auth
	WebhookSecret string // HMAC key for X-Maya-Signature
	CheckoutTTL   time.Duration
	Timeout       time.Duration
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

func (a *Adapter) Provider() db_models.PaymentProvider { return db_models.ProviderMaya }

type checkoutRequest struct {
	TotalAmount struct {
		Value    decimal.Decimal `json:"value"`
		Currency string          `json:"currency"`
	} `json:"totalAmount"`
	RequestReferenceNumber string `json:"requestReferenceNumber"`
	Buyer                  struct {
		FirstName string `json:"firstName"`
		Contact   struct {
			Email string `json:"email"`
			Phone string `json:"phone,omitempty"`
		} `json:"contact"`
	} `json:"buyer"`
	RedirectURL struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
		Cancel  string `json:"cancel"`
	} `json:"redirectUrl"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type checkoutResponse struct {
	CheckoutID  string `json:"checkoutId"`
	RedirectURL string `json:"redirectUrl"`
}

func (a *Adapter) Initiate(ctx context.Context, intent gateways.PaymentIntent) (*gateways.InitiationResult, error) {
	if intent.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", utils.ErrValidation)
	}
	if intent.CustomerEmail == "" {
		return nil, fmt.Errorf("%w: customer email is required by Maya checkout", utils.ErrValidation)
	}

	var body checkoutRequest
	body.TotalAmount.Value = intent.Amount
	body.TotalAmount.Currency = intent.Currency
	body.RequestReferenceNumber = intent.ReferenceNumber
	body.Buyer.FirstName = intent.CustomerName
	body.Buyer.Contact.Email = intent.CustomerEmail
	body.Buyer.Contact.Phone = intent.CustomerPhone
	body.RedirectURL.Success = intent.SuccessURL
	body.RedirectURL.Failure = intent.FailureURL
	body.RedirectURL.Cancel = intent.FailureURL
	body.Metadata = intent.Metadata

	var resp checkoutResponse
	if err := a.doJSON(ctx, http.MethodPost, "/checkout/v1/checkouts", a.cfg.PublicKey, body, &resp); err != nil {
		return nil, err
	}
	if resp.CheckoutID == "" || resp.RedirectURL == "" {
		return nil, fmt.Errorf("%w: maya returned an incomplete checkout", utils.ErrProviderRejected)
	}

	return &gateways.InitiationResult{
		ProviderTxnID: resp.CheckoutID,
		RedirectURL:   resp.RedirectURL,
		ExpiresAt:     time.Now().Add(a.cfg.CheckoutTTL),
	}, nil
}

func (a *Adapter) VerifyWebhookSignature(body []byte, header http.Header) bool {
	return gateways.VerifyHexHMAC(body, a.cfg.WebhookSecret, header.Get("X-Maya-Signature"))
}

type webhookPayload struct {
	ID                     string `json:"id"`
	CheckoutID             string `json:"checkoutId"`
	PaymentStatus          string `json:"paymentStatus"`
	RequestReferenceNumber string `json:"requestReferenceNumber"`
	FailureReason          string `json:"failureReason"`
	UpdatedAt              string `json:"updatedAt"`
}

func (a *Adapter) ParseWebhookEvent(body []byte) ([]gateways.NormalizedEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("maya webhook payload: %w", err)
	}

	// Only checkoutId addresses a transaction; the notification id never
	// matches anything locally, so its absence is a parse failure.
	if payload.CheckoutID == "" || payload.PaymentStatus == "" {
		return nil, fmt.Errorf("maya webhook missing checkoutId or paymentStatus")
	}

	status, ok := mapStatus(payload.PaymentStatus)
	if !ok {
		return nil, fmt.Errorf("maya webhook carries unknown status %q", payload.PaymentStatus)
	}

	occurredAt := time.Now()
	if payload.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, payload.UpdatedAt); err == nil {
			occurredAt = t
		}
	}

	// Notification id is Maya's redelivery-stable key. Fall back to a body
	// digest so a malformed notification can still not be applied twice.
	dedupeKey := payload.ID
	if dedupeKey == "" {
		sum := sha256.Sum256(body)
		dedupeKey = hex.EncodeToString(sum[:])
	}

	return []gateways.NormalizedEvent{{
		ProviderTxnID: payload.CheckoutID,
		NewStatus:     status,
		OccurredAt:    occurredAt,
		DedupeKey:     dedupeKey,
		FailureReason: payload.FailureReason,
	}}, nil
}

type paymentStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *Adapter) QueryStatus(ctx context.Context, providerTxnID string) (*gateways.ProviderStatus, error) {
	var resp paymentStatusResponse
	path := fmt.Sprintf("/payments/v1/payments/%s/status", providerTxnID)
	if err := a.doJSON(ctx, http.MethodGet, path, a.cfg.SecretKey, nil, &resp); err != nil {
		return nil, err
	}
	status, ok := mapStatus(resp.Status)
	if !ok {
		return nil, fmt.Errorf("%w: maya reported unknown status %q", utils.ErrProviderRejected, resp.Status)
	}
	return &gateways.ProviderStatus{Status: status, RawStatus: resp.Status}, nil
}

type refundRequest struct {
	TotalAmount struct {
		Value    decimal.Decimal `json:"value"`
		Currency string          `json:"currency"`
	} `json:"totalAmount"`
	Reason string `json:"reason"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *Adapter) Refund(ctx context.Context, providerTxnID string, amount decimal.Decimal, reason string) (*gateways.RefundResult, error) {
	var body refundRequest
	body.TotalAmount.Value = amount
	body.TotalAmount.Currency = "PHP"
	body.Reason = reason

	var resp refundResponse
	path := fmt.Sprintf("/payments/v1/payments/%s/refunds", providerTxnID)
	if err := a.doJSON(ctx, http.MethodPost, path, a.cfg.SecretKey, body, &resp); err != nil {
		return nil, err
	}

	result := &gateways.RefundResult{ProviderRefundID: resp.ID, RawStatus: resp.Status}
	switch strings.ToUpper(resp.Status) {
	case "SUCCESS", "REFUNDED":
		result.Status = db_models.RefundStatusProcessed
	case "FAILED", "DECLINED":
		result.Status = db_models.RefundStatusFailed
	default:
		result.Status = db_models.RefundStatusApproved
	}
	return result, nil
}

// doJSON performs one authenticated call. No retries here: a duplicate
// checkout or refund at the gateway costs real money.
func (a *Adapter) doJSON(ctx context.Context, method, path, key string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(key+":")))

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: maya: %v", utils.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: maya: reading response: %v", utils.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: maya returned %d", utils.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: maya returned %d: %s", utils.ErrProviderRejected, resp.StatusCode, truncate(raw, 256))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: maya response decode: %v", utils.ErrProviderRejected, err)
		}
	}
	return nil
}

func mapStatus(raw string) (db_models.TransactionStatus, bool) {
	switch strings.ToUpper(raw) {
	case "PAYMENT_SUCCESS", "SUCCESS", "COMPLETED", "CAPTURED":
		return db_models.TxnStatusCompleted, true
	case "PAYMENT_FAILED", "FAILED", "DECLINED", "ERROR":
		return db_models.TxnStatusFailed, true
	case "PAYMENT_CANCELLED", "CANCELLED", "VOIDED":
		return db_models.TxnStatusCancelled, true
	case "PAYMENT_EXPIRED", "EXPIRED":
		return db_models.TxnStatusExpired, true
	case "REFUNDED":
		return db_models.TxnStatusRefunded, true
	case "PENDING_TOKEN", "PENDING_PAYMENT", "PENDING", "AUTHORIZED", "PROCESSING", "FOR_AUTHENTICATION", "WAITING":
		return db_models.TxnStatusProcessing, true
	}
	return "", false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

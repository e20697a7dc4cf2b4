package gcash

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opstower/internal/gateways"
	"opstower/internal/models/db_models"
	"opstower/pkg/utils"
)

func testIntent() gateways.PaymentIntent {
	return gateways.PaymentIntent{
		TransactionID:   "TXN-abc",
		ReferenceNumber: "OPS-20260829-0002",
		Amount:          decimal.NewFromInt(850),
		Currency:        "PHP",
		Description:     "City trip",
		CustomerName:    "Maria Santos",
		CustomerEmail:   "maria@example.ph",
		SuccessURL:      "https://app.example.ph/pay/success",
		FailureURL:      "https://app.example.ph/pay/failure",
	}
}

func TestInitiateRequestsPayment(t *testing.T) {
	var gotEnv requestEnvelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/request", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEnv))
		var resp responseEnvelope
		resp.Status = "SUCCESS"
		resp.Payment.Hash = "hash-555"
		resp.Payment.RedirectURL = "https://gcash.ebanx.com/pay/hash-555"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := NewAdapter(Config{BaseURL: server.URL, IntegrationKey: "ik-test", CheckoutTTL: time.Hour})
	result, err := adapter.Initiate(context.Background(), testIntent())
	require.NoError(t, err)

	assert.Equal(t, "ik-test", gotEnv.IntegrationKey)
	assert.Equal(t, "request", gotEnv.Operation)
	assert.Equal(t, "gcash", gotEnv.Payment["payment_type_code"])
	assert.Equal(t, "OPS-20260829-0002", gotEnv.Payment["merchant_payment_code"])
	assert.Equal(t, "hash-555", result.ProviderTxnID)
	assert.Equal(t, "https://gcash.ebanx.com/pay/hash-555", result.RedirectURL)
}

func TestInitiateInBandErrorIsRejection(t *testing.T) {
	// EBANX answers HTTP 200 for business rejections and flags them in the
	// envelope instead.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(responseEnvelope{
			Status:        "ERROR",
			StatusCode:    "BP-DR-13",
			StatusMessage: "Field payment.amount_total is required",
		})
	}))
	defer server.Close()

	adapter := NewAdapter(Config{BaseURL: server.URL, IntegrationKey: "ik-test"})
	_, err := adapter.Initiate(context.Background(), testIntent())
	assert.ErrorIs(t, err, utils.ErrProviderRejected)
	assert.Contains(t, err.Error(), "BP-DR-13")
}

func TestInitiateClassifiesTransportErrors(t *testing.T) {
	status := http.StatusInternalServerError
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	adapter := NewAdapter(Config{BaseURL: server.URL, IntegrationKey: "ik-test"})

	_, err := adapter.Initiate(context.Background(), testIntent())
	assert.ErrorIs(t, err, utils.ErrProviderUnavailable)

	status = http.StatusForbidden
	_, err = adapter.Initiate(context.Background(), testIntent())
	assert.ErrorIs(t, err, utils.ErrProviderRejected)
}

func TestInitiateTimeoutIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	adapter := NewAdapter(Config{BaseURL: server.URL, IntegrationKey: "ik-test", Timeout: 20 * time.Millisecond})
	_, err := adapter.Initiate(context.Background(), testIntent())
	assert.ErrorIs(t, err, utils.ErrProviderUnavailable)
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	adapter := NewAdapter(Config{WebhookSecret: "whsec-gcash"})
	body := []byte(`{"operation":"payment_status_change","hash_codes":["hash-555"],"status":"CO"}`)

	header := http.Header{}
	header.Set("X-Ebanx-Signature", sign(body, "whsec-gcash"))
	assert.True(t, adapter.VerifyWebhookSignature(body, header))

	assert.False(t, adapter.VerifyWebhookSignature([]byte(`{"tampered":true}`), header))
	assert.False(t, adapter.VerifyWebhookSignature(body, http.Header{}))
}

func TestParseWebhookEvent(t *testing.T) {
	adapter := NewAdapter(Config{})

	body := []byte(`{
		"operation": "payment_status_change",
		"hash_codes": ["hash-555"],
		"status": "CO",
		"occurred_at": "2026-08-29T11:00:00+08:00"
	}`)
	events, err := adapter.ParseWebhookEvent(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "hash-555", events[0].ProviderTxnID)
	assert.Equal(t, db_models.TxnStatusCompleted, events[0].NewStatus)
	assert.Equal(t, "payment_status_change:hash-555", events[0].DedupeKey)

	body = []byte(`{"hash_codes":["hash-555"],"status":"CA","reason":"declined by issuer"}`)
	events, err = adapter.ParseWebhookEvent(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, db_models.TxnStatusFailed, events[0].NewStatus)
	assert.Equal(t, "declined by issuer", events[0].FailureReason)
	// No operation field: the dedupe prefix falls back to the body digest.
	assert.Equal(t, 64+len(":hash-555"), len(events[0].DedupeKey))

	_, err = adapter.ParseWebhookEvent([]byte(`{"operation":"payment_status_change","status":"CO"}`))
	assert.Error(t, err, "missing hash_codes must not parse")

	_, err = adapter.ParseWebhookEvent([]byte(`{"hash_codes":[""],"status":"CO"}`))
	assert.Error(t, err, "empty hash_codes must not parse")

	_, err = adapter.ParseWebhookEvent([]byte(`{"hash_codes":["h"],"status":"ZZ"}`))
	assert.Error(t, err, "unknown statuses must not be applied")
}

func TestParseWebhookEventFansOutBatchedHashes(t *testing.T) {
	adapter := NewAdapter(Config{})

	// A single delivery can settle several payments at once.
	body := []byte(`{
		"operation": "payment_status_change",
		"hash_codes": ["hash-1", "hash-2", "hash-3"],
		"status": "CO"
	}`)
	events, err := adapter.ParseWebhookEvent(body)
	require.NoError(t, err)
	require.Len(t, events, 3)

	seen := make(map[string]bool)
	for i, hash := range []string{"hash-1", "hash-2", "hash-3"} {
		assert.Equal(t, hash, events[i].ProviderTxnID)
		assert.Equal(t, db_models.TxnStatusCompleted, events[i].NewStatus)
		assert.Equal(t, "payment_status_change:"+hash, events[i].DedupeKey)
		assert.False(t, seen[events[i].DedupeKey], "dedupe keys must be distinct per hash")
		seen[events[i].DedupeKey] = true
	}
}

func TestMapStatusTwoLetterCodes(t *testing.T) {
	cases := map[string]db_models.TransactionStatus{
		"CO": db_models.TxnStatusCompleted,
		"CA": db_models.TxnStatusFailed,
		"VO": db_models.TxnStatusCancelled,
		"EX": db_models.TxnStatusExpired,
		"RF": db_models.TxnStatusRefunded,
		"PE": db_models.TxnStatusProcessing,
		"OP": db_models.TxnStatusProcessing,
		"co": db_models.TxnStatusCompleted,
	}
	for raw, want := range cases {
		got, ok := mapStatus(raw)
		require.Truef(t, ok, "status %q should map", raw)
		assert.Equal(t, want, got)
	}

	_, ok := mapStatus("XX")
	assert.False(t, ok)
}

func TestQueryStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/query", r.URL.Path)
		var env requestEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		assert.Equal(t, "hash-555", env.Hash)
		var resp responseEnvelope
		resp.Status = "SUCCESS"
		resp.Payment.Status = "PE"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := NewAdapter(Config{BaseURL: server.URL, IntegrationKey: "ik-test"})
	status, err := adapter.QueryStatus(context.Background(), "hash-555")
	require.NoError(t, err)
	assert.Equal(t, db_models.TxnStatusProcessing, status.Status)
	assert.Equal(t, "PE", status.RawStatus)
}

func TestRefundStatusMapping(t *testing.T) {
	raw := "RE"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/refund", r.URL.Path)
		var resp responseEnvelope
		resp.Status = "SUCCESS"
		resp.Refund.ID = "rf-1"
		resp.Refund.Status = raw
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := NewAdapter(Config{BaseURL: server.URL, IntegrationKey: "ik-test"})

	result, err := adapter.Refund(context.Background(), "hash-555", decimal.NewFromInt(850), "trip cancelled")
	require.NoError(t, err)
	assert.Equal(t, db_models.RefundStatusProcessed, result.Status)

	raw = "NO"
	result, err = adapter.Refund(context.Background(), "hash-555", decimal.NewFromInt(850), "trip cancelled")
	require.NoError(t, err)
	assert.Equal(t, db_models.RefundStatusFailed, result.Status)

	raw = "PENDING"
	result, err = adapter.Refund(context.Background(), "hash-555", decimal.NewFromInt(850), "trip cancelled")
	require.NoError(t, err)
	assert.Equal(t, db_models.RefundStatusApproved, result.Status)
}

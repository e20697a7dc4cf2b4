package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"opstower/internal/gateways"
	"opstower/internal/models/db_models"
)

func TestDetectProviderBySignatureHeader(t *testing.T) {
	router := NewWebhookRouter(nil, zap.NewNop())

	header := http.Header{}
	header.Set("X-Maya-Signature", "abc123")
	provider, ok := router.DetectProvider(header, []byte(`{}`))
	require.True(t, ok)
	assert.Equal(t, db_models.ProviderMaya, provider)

	header = http.Header{}
	header.Set("X-Ebanx-Signature", "def456")
	provider, ok = router.DetectProvider(header, []byte(`{}`))
	require.True(t, ok)
	assert.Equal(t, db_models.ProviderGCash, provider)
}

func TestDetectProviderByBodyShape(t *testing.T) {
	router := NewWebhookRouter(nil, zap.NewNop())

	mayaBody := []byte(`{"id":"evt-1","paymentStatus":"PAYMENT_SUCCESS","requestReferenceNumber":"OPS-20260829-0001"}`)
	provider, ok := router.DetectProvider(http.Header{}, mayaBody)
	require.True(t, ok)
	assert.Equal(t, db_models.ProviderMaya, provider)

	ebanxBody := []byte(`{"hash_codes":"abc,def","operation":"payment_status_change"}`)
	provider, ok = router.DetectProvider(http.Header{}, ebanxBody)
	require.True(t, ok)
	assert.Equal(t, db_models.ProviderGCash, provider)
}

func TestDetectProviderNeverGuesses(t *testing.T) {
	router := NewWebhookRouter(nil, zap.NewNop())

	// Neither shape.
	_, ok := router.DetectProvider(http.Header{}, []byte(`{"hello":"world"}`))
	assert.False(t, ok)

	// Both shapes at once is just as unidentifiable.
	both := []byte(`{"paymentStatus":"PAYMENT_SUCCESS","hash_codes":"abc","operation":"payment_status_change"}`)
	_, ok = router.DetectProvider(http.Header{}, both)
	assert.False(t, ok)

	// Not even JSON.
	_, ok = router.DetectProvider(http.Header{}, []byte(`not json`))
	assert.False(t, ok)
}

func TestRouteDropsUnidentifiableDeliveries(t *testing.T) {
	// A nil orchestrator proves Route never reaches it for unknown payloads.
	router := NewWebhookRouter(nil, zap.NewNop())

	results, ok := router.Route(context.Background(), http.Header{}, []byte(`{"hello":"world"}`))
	assert.False(t, ok)
	assert.Nil(t, results)
}

func TestRouteDispatchesToDetectedProvider(t *testing.T) {
	gw := mayaFake()
	env := newTestEnv(gw)
	transactionID := initiated(t, env)
	gw.parseEvents = []gateways.NormalizedEvent{{
		ProviderTxnID: "chk-001",
		NewStatus:     db_models.TxnStatusCompleted,
		OccurredAt:    time.Now(),
		DedupeKey:     "notif-route",
	}}

	router := NewWebhookRouter(env.orchestrator, zap.NewNop())
	header := http.Header{}
	header.Set("X-Maya-Signature", "sig")

	results, ok := router.Route(context.Background(), header, []byte(`{}`))
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, db_models.WebhookOutcomeApplied, results[0].Outcome)
	assert.Equal(t, transactionID, results[0].TransactionID)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"opstower/internal/gateways"
	"opstower/internal/models/db_models"
)

func TestSweepOnceExpiresStalePending(t *testing.T) {
	gw := mayaFake()
	gw.initResult.ExpiresAt = time.Now().Add(-time.Minute)
	env := newTestEnv(gw)
	transactionID := initiated(t, env)

	sweeper := NewExpirySweeper(env.txns, time.Minute, zap.NewNop())
	sweeper.SweepOnce(context.Background())

	assert.Equal(t, db_models.TxnStatusExpired, env.txns.status(transactionID))
}

func TestSweepLeavesUnexpiredTransactionsAlone(t *testing.T) {
	gw := mayaFake() // expiry one hour out
	env := newTestEnv(gw)
	transactionID := initiated(t, env)

	sweeper := NewExpirySweeper(env.txns, time.Minute, zap.NewNop())
	sweeper.SweepOnce(context.Background())

	assert.Equal(t, db_models.TxnStatusPending, env.txns.status(transactionID))
}

func TestSweepLosesRaceAgainstWebhook(t *testing.T) {
	gw := mayaFake()
	gw.initResult.ExpiresAt = time.Now().Add(-time.Minute)
	env := newTestEnv(gw)
	transactionID := initiated(t, env)

	// The webhook lands first and settles the payment.
	gw.parseEvents = []gateways.NormalizedEvent{{
		ProviderTxnID: "chk-001",
		NewStatus:     db_models.TxnStatusCompleted,
		OccurredAt:    time.Now(),
		DedupeKey:     "notif-late",
	}}
	results := env.orchestrator.ApplyWebhook(context.Background(), db_models.ProviderMaya, []byte(`{}`), nil)
	require.Len(t, results, 1)
	require.Equal(t, db_models.WebhookOutcomeApplied, results[0].Outcome)

	// The sweep still sees the row as stale but must not override completion.
	sweeper := NewExpirySweeper(env.txns, time.Minute, zap.NewNop())
	sweeper.SweepOnce(context.Background())

	assert.Equal(t, db_models.TxnStatusCompleted, env.txns.status(transactionID))
}

func TestSweeperStartStop(t *testing.T) {
	env := newTestEnv(mayaFake())
	sweeper := NewExpirySweeper(env.txns, 10*time.Millisecond, zap.NewNop())

	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()

	// Stop on a never-started sweeper is a no-op.
	NewExpirySweeper(env.txns, time.Minute, zap.NewNop()).Stop()
}

package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"opstower/internal/gateways"
	"opstower/internal/models/db_models"
	"opstower/pkg/utils"
)

// --- mock transaction repository ---
// Mirrors the real accessor's semantics: dedupe-key-once, state-machine guard,
// single conditional update.

type mockTxnRepo struct {
	mu         sync.Mutex
	byID       map[string]*db_models.Transaction
	applied    map[string]map[string]bool
	failCreate bool
	dupeCreate bool

	// getHook runs after a GetByTransactionID snapshot is taken, letting a
	// test mutate state in the window between a caller's read and its write.
	getHook func()
}

func newMockTxnRepo() *mockTxnRepo {
	return &mockTxnRepo{
		byID:    make(map[string]*db_models.Transaction),
		applied: make(map[string]map[string]bool),
	}
}

func (m *mockTxnRepo) Create(ctx context.Context, txn *db_models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return utils.ErrDatabaseError
	}
	if m.dupeCreate {
		return utils.ErrDuplicateReference
	}
	if _, ok := m.byID[txn.TransactionID]; ok {
		return utils.ErrDuplicateReference
	}
	for _, existing := range m.byID {
		if existing.ReferenceNumber == txn.ReferenceNumber {
			return utils.ErrDuplicateReference
		}
	}
	cp := *txn
	m.byID[txn.TransactionID] = &cp
	return nil
}

func (m *mockTxnRepo) GetByTransactionID(ctx context.Context, transactionID string) (*db_models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.byID[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *txn
	if m.getHook != nil {
		m.getHook()
	}
	return &cp, nil
}

func (m *mockTxnRepo) GetByProviderTxnID(ctx context.Context, provider db_models.PaymentProvider, providerTxnID string) (*db_models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.byID {
		if txn.Provider == provider && txn.ProviderTxnID != nil && *txn.ProviderTxnID == providerTxnID {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockTxnRepo) AttachProviderTxnID(ctx context.Context, transactionID, providerTxnID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn, ok := m.byID[transactionID]; ok && txn.ProviderTxnID == nil {
		txn.ProviderTxnID = &providerTxnID
	}
	return nil
}

func (m *mockTxnRepo) ApplyStatusTransition(ctx context.Context, transactionID string, newStatus db_models.TransactionStatus, occurredAt time.Time, dedupeKey string, failureReason *string) (*db_models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dedupeKey != "" && m.applied[transactionID][dedupeKey] {
		return nil, utils.ErrAlreadyApplied
	}

	txn, ok := m.byID[transactionID]
	if !ok {
		return nil, utils.ErrTransactionNotFound
	}
	if txn.Status == newStatus {
		return nil, utils.ErrAlreadyApplied
	}
	if !db_models.CanTransition(txn.Status, newStatus) {
		return nil, utils.ErrIllegalTransition
	}

	if dedupeKey != "" {
		if m.applied[transactionID] == nil {
			m.applied[transactionID] = make(map[string]bool)
		}
		m.applied[transactionID][dedupeKey] = true
	}

	txn.Status = newStatus
	if newStatus == db_models.TxnStatusCompleted {
		at := occurredAt.Unix()
		txn.CompletedAt = &at
	}
	if failureReason != nil {
		txn.FailureReason = failureReason
	}
	cp := *txn
	return &cp, nil
}

func (m *mockTxnRepo) ListExpiredPending(ctx context.Context, cutoff int64, limit int) ([]db_models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db_models.Transaction
	for _, txn := range m.byID {
		if (txn.Status == db_models.TxnStatusPending || txn.Status == db_models.TxnStatusProcessing) &&
			txn.ExpiresAt != nil && *txn.ExpiresAt < cutoff {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (m *mockTxnRepo) status(transactionID string) db_models.TransactionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[transactionID].Status
}

// --- mock refund repository ---

type mockRefundRepo struct {
	mu      sync.Mutex
	refunds []db_models.Refund
}

func (m *mockRefundRepo) Create(ctx context.Context, refund *db_models.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds = append(m.refunds, *refund)
	return nil
}

func (m *mockRefundRepo) GetByRefundID(ctx context.Context, refundID string) (*db_models.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.refunds {
		if m.refunds[i].RefundID == refundID {
			cp := m.refunds[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRefundRepo) ListByTransactionID(ctx context.Context, transactionID string) ([]db_models.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db_models.Refund
	for i := range m.refunds {
		if m.refunds[i].TransactionID == transactionID {
			out = append(out, m.refunds[i])
		}
	}
	return out, nil
}

func (m *mockRefundRepo) SumReserved(ctx context.Context, transactionID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for i := range m.refunds {
		if m.refunds[i].TransactionID != transactionID {
			continue
		}
		switch m.refunds[i].Status {
		case db_models.RefundStatusPending, db_models.RefundStatusApproved, db_models.RefundStatusProcessed:
			total = total.Add(m.refunds[i].Amount)
		}
	}
	return total, nil
}

func (m *mockRefundRepo) UpdateStatus(ctx context.Context, refundID string, status db_models.RefundStatus, processedBy, providerRefundID, failureReason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.refunds {
		if m.refunds[i].RefundID == refundID {
			m.refunds[i].Status = status
			if processedBy != nil {
				m.refunds[i].ProcessedBy = processedBy
			}
			if providerRefundID != nil {
				m.refunds[i].ProviderRefundID = providerRefundID
			}
			if failureReason != nil {
				m.refunds[i].FailureReason = failureReason
			}
			return nil
		}
	}
	return utils.ErrRefundNotFound
}

// --- mock webhook delivery log ---

type mockWebhookLogRepo struct {
	mu      sync.Mutex
	entries []db_models.WebhookDeliveryLog
}

func (m *mockWebhookLogRepo) Create(ctx context.Context, entry *db_models.WebhookDeliveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockWebhookLogRepo) ListFailures(ctx context.Context, limit int) ([]db_models.WebhookDeliveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db_models.WebhookDeliveryLog
	for i := range m.entries {
		switch m.entries[i].Outcome {
		case db_models.WebhookOutcomeApplied, db_models.WebhookOutcomeAlreadyApplied:
		default:
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// --- mock alert sink ---

type mockAlerts struct {
	mu                  sync.Mutex
	unreconciledCharges int
	webhookFailures     int
}

func (m *mockAlerts) NotifyUnreconciledCharge(transactionID, provider, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreconciledCharges++
}

func (m *mockAlerts) NotifyWebhookFailure(provider string, outcome db_models.WebhookOutcome, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhookFailures++
}

// --- fake gateway ---

type fakeGateway struct {
	provider db_models.PaymentProvider

	initResult *gateways.InitiationResult
	initErr    error

	sigOK       bool
	parseEvents []gateways.NormalizedEvent
	parseErr    error
	parseCalled bool

	queryStatus *gateways.ProviderStatus
	queryErr    error

	refundResult *gateways.RefundResult
	refundErr    error
}

func (f *fakeGateway) Provider() db_models.PaymentProvider { return f.provider }

func (f *fakeGateway) Initiate(ctx context.Context, intent gateways.PaymentIntent) (*gateways.InitiationResult, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return f.initResult, nil
}

func (f *fakeGateway) VerifyWebhookSignature(body []byte, header http.Header) bool {
	return f.sigOK
}

func (f *fakeGateway) ParseWebhookEvent(body []byte) ([]gateways.NormalizedEvent, error) {
	f.parseCalled = true
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.parseEvents, nil
}

func (f *fakeGateway) QueryStatus(ctx context.Context, providerTxnID string) (*gateways.ProviderStatus, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryStatus, nil
}

func (f *fakeGateway) Refund(ctx context.Context, providerTxnID string, amount decimal.Decimal, reason string) (*gateways.RefundResult, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return f.refundResult, nil
}

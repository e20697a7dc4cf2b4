package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"opstower/internal/gateways"
	"opstower/internal/models/db_models"
	"opstower/internal/models/request_models"
	"opstower/internal/models/response_models"
	"opstower/internal/repositories"
	mem "opstower/pkg/memcache"
	"opstower/pkg/utils"
)

type OrchestratorConfig struct {
	DefaultProvider  db_models.PaymentProvider
	FallbackOrder    []db_models.PaymentProvider
	DefaultCurrency  string
	MaxAmount        decimal.Decimal
	ProviderCooldown time.Duration
}

// WebhookProcessingResult is what the webhook path reports back to the HTTP
// layer, one per payment the delivery touched. The gateway still gets a 200
// for every identified delivery; outcomes only drive logging and the
// dead-letter record.
type WebhookProcessingResult struct {
	Outcome       db_models.WebhookOutcome
	TransactionID string
	NewStatus     db_models.TransactionStatus
	Detail        string
}

type PaymentOrchestrator interface {
	InitiatePayment(ctx context.Context, req request_models.InitiatePaymentRequest) (*response_models.InitiatePaymentResponse, error)
	GetPaymentStatus(ctx context.Context, transactionID string, sync bool) (*response_models.PaymentStatusResponse, error)
	ProcessRefund(ctx context.Context, req request_models.RefundRequest) (*response_models.RefundResponse, error)

	// ApplyWebhook runs the verified-signature → parse → transition pipeline
	// for one delivery from an already-identified provider. A delivery that
	// settles several payments (EBANX batches hashes) yields one result per
	// payment.
	ApplyWebhook(ctx context.Context, provider db_models.PaymentProvider, body []byte, header http.Header) []*WebhookProcessingResult
}

type paymentOrchestrator struct {
	gateways    map[db_models.PaymentProvider]gateways.Gateway
	txns        repositories.TransactionRepositoryInterface
	refunds     repositories.RefundRepositoryInterface
	webhookLogs repositories.WebhookLogRepositoryInterface
	health      mem.ProviderHealthStore
	alerts      IAlertService
	cfg         OrchestratorConfig
	logger      *zap.Logger
	audit       *zap.Logger
}

func NewPaymentOrchestrator(
	gws []gateways.Gateway,
	txns repositories.TransactionRepositoryInterface,
	refunds repositories.RefundRepositoryInterface,
	webhookLogs repositories.WebhookLogRepositoryInterface,
	health mem.ProviderHealthStore,
	alerts IAlertService,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) PaymentOrchestrator {
	byProvider := make(map[db_models.PaymentProvider]gateways.Gateway, len(gws))
	for _, gw := range gws {
		byProvider[gw.Provider()] = gw
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "PHP"
	}
	if cfg.ProviderCooldown <= 0 {
		cfg.ProviderCooldown = 2 * time.Minute
	}
	return &paymentOrchestrator{
		gateways:    byProvider,
		txns:        txns,
		refunds:     refunds,
		webhookLogs: webhookLogs,
		health:      health,
		alerts:      alerts,
		cfg:         cfg,
		logger:      logger,
		audit:       logger.Named("audit"),
	}
}

func (o *paymentOrchestrator) InitiatePayment(ctx context.Context, req request_models.InitiatePaymentRequest) (*response_models.InitiatePaymentResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", utils.ErrValidation)
	}
	if !o.cfg.MaxAmount.IsZero() && req.Amount.GreaterThan(o.cfg.MaxAmount) {
		return nil, fmt.Errorf("%w: amount exceeds maximum of %s", utils.ErrValidation, o.cfg.MaxAmount.StringFixed(2))
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = o.cfg.DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be an ISO 4217 code", utils.ErrValidation)
	}
	if req.PreferredProvider != "" && !req.PreferredProvider.Valid() {
		return nil, fmt.Errorf("%w: unknown provider %q", utils.ErrValidation, req.PreferredProvider)
	}

	provider := o.selectProvider(req.PreferredProvider)
	transactionID := utils.NewTransactionID()
	referenceNumber := utils.NewReferenceNumber()

	txn := &db_models.Transaction{
		TransactionID:   transactionID,
		ReferenceNumber: referenceNumber,
		Amount:          req.Amount,
		Currency:        currency,
		Provider:        provider,
		Status:          db_models.TxnStatusPending,
		Description:     req.Description,
		UserID:          req.UserID,
		UserType:        req.UserType,
		BookingID:       req.BookingID,
		Metadata:        toJSON(req.Metadata),
	}

	// Cash never leaves the vehicle: recorded as settled immediately. No
	// gateway was called, so a create failure here is an ordinary error, not
	// an unreconciled charge.
	if provider == db_models.ProviderCash {
		now := time.Now().Unix()
		txn.Status = db_models.TxnStatusCompleted
		txn.CompletedAt = &now
		if err := o.txns.Create(ctx, txn); err != nil {
			return nil, err
		}
		o.auditTransition(transactionID, "", db_models.TxnStatusCompleted, "cash payment recorded")
		return &response_models.InitiatePaymentResponse{
			TransactionID:   transactionID,
			ReferenceNumber: referenceNumber,
			Provider:        provider,
			Status:          txn.Status,
		}, nil
	}

	gw, ok := o.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: no gateway configured for %s", utils.ErrUnknownProvider, provider)
	}

	intent := gateways.PaymentIntent{
		TransactionID:   transactionID,
		ReferenceNumber: referenceNumber,
		Amount:          req.Amount,
		Currency:        currency,
		Description:     req.Description,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		SuccessURL:      req.SuccessURL,
		FailureURL:      req.FailureURL,
		Metadata:        req.Metadata,
	}

	initiation, err := gw.Initiate(ctx, intent)
	if err != nil {
		if errors.Is(err, utils.ErrProviderUnavailable) {
			o.health.MarkUnavailable(string(provider), o.cfg.ProviderCooldown)
		}
		o.logger.Warn("gateway initiation failed",
			zap.String("transaction_id", transactionID),
			zap.String("provider", string(provider)),
			zap.Error(err))
		return nil, err
	}

	txn.ProviderTxnID = &initiation.ProviderTxnID
	expiresAt := initiation.ExpiresAt.Unix()
	txn.ExpiresAt = &expiresAt

	// The gateway call already succeeded: any create failure here means money
	// may be in flight with no local record. Escalate, never swallow.
	if err := o.txns.Create(ctx, txn); err != nil {
		return nil, o.persistFailure(txn, err)
	}

	o.auditTransition(transactionID, "", db_models.TxnStatusPending, "payment initiated with "+string(provider))

	return &response_models.InitiatePaymentResponse{
		TransactionID:   transactionID,
		ReferenceNumber: referenceNumber,
		Provider:        provider,
		Status:          db_models.TxnStatusPending,
		RedirectURL:     initiation.RedirectURL,
		ExpiresAt:       utils.FormatRFC3339PH(initiation.ExpiresAt),
	}, nil
}

// selectProvider prefers the caller's explicit choice when it is configured
// and currently healthy, then walks the fallback order, then degrades to the
// configured default rather than failing the request outright.
func (o *paymentOrchestrator) selectProvider(preferred db_models.PaymentProvider) db_models.PaymentProvider {
	usable := func(p db_models.PaymentProvider) bool {
		if p == db_models.ProviderCash {
			return true
		}
		_, ok := o.gateways[p]
		return ok && o.health.Available(string(p))
	}

	if preferred != "" && usable(preferred) {
		return preferred
	}
	for _, p := range o.cfg.FallbackOrder {
		if usable(p) {
			return p
		}
	}
	return o.cfg.DefaultProvider
}

func (o *paymentOrchestrator) ApplyWebhook(ctx context.Context, provider db_models.PaymentProvider, body []byte, header http.Header) []*WebhookProcessingResult {
	gw, ok := o.gateways[provider]
	if !ok {
		return []*WebhookProcessingResult{o.finishWebhook(ctx, provider, body, &WebhookProcessingResult{
			Outcome: db_models.WebhookOutcomeParseFailed,
			Detail:  "no gateway configured for provider",
		}, nil)}
	}

	if !gw.VerifyWebhookSignature(body, header) {
		o.audit.Error("webhook signature verification failed",
			zap.String("provider", string(provider)))
		return []*WebhookProcessingResult{o.finishWebhook(ctx, provider, body, &WebhookProcessingResult{
			Outcome: db_models.WebhookOutcomeSignatureInvalid,
			Detail:  "signature mismatch",
		}, nil)}
	}

	events, err := gw.ParseWebhookEvent(body)
	if err != nil {
		return []*WebhookProcessingResult{o.finishWebhook(ctx, provider, body, &WebhookProcessingResult{
			Outcome: db_models.WebhookOutcomeParseFailed,
			Detail:  err.Error(),
		}, nil)}
	}

	results := make([]*WebhookProcessingResult, 0, len(events))
	for i := range events {
		results = append(results, o.applyEvent(ctx, provider, body, &events[i]))
	}
	return results
}

// applyEvent pushes a single normalized event through the guarded transition
// and writes its delivery record.
func (o *paymentOrchestrator) applyEvent(ctx context.Context, provider db_models.PaymentProvider, body []byte, event *gateways.NormalizedEvent) *WebhookProcessingResult {
	txn, err := o.txns.GetByProviderTxnID(ctx, provider, event.ProviderTxnID)
	if err != nil {
		return o.finishWebhook(ctx, provider, body, &WebhookProcessingResult{
			Outcome: db_models.WebhookOutcomeStoreError,
			Detail:  err.Error(),
		}, event)
	}
	if txn == nil {
		return o.finishWebhook(ctx, provider, body, &WebhookProcessingResult{
			Outcome: db_models.WebhookOutcomeUnknownTxn,
			Detail:  "no transaction for provider id " + event.ProviderTxnID,
		}, event)
	}

	result := &WebhookProcessingResult{TransactionID: txn.TransactionID, NewStatus: event.NewStatus}

	var failureReason *string
	if event.FailureReason != "" {
		failureReason = &event.FailureReason
	}

	updated, err := o.txns.ApplyStatusTransition(ctx, txn.TransactionID, event.NewStatus, event.OccurredAt, event.DedupeKey, failureReason)
	switch {
	case err == nil:
		result.Outcome = db_models.WebhookOutcomeApplied
		o.auditTransition(txn.TransactionID, string(txn.Status), updated.Status, "webhook "+event.DedupeKey)
	case errors.Is(err, utils.ErrAlreadyApplied):
		result.Outcome = db_models.WebhookOutcomeAlreadyApplied
		result.Detail = "duplicate delivery"
	case errors.Is(err, utils.ErrIllegalTransition):
		// Expected under racing or out-of-order deliveries. Not an error.
		result.Outcome = db_models.WebhookOutcomeIgnoredIllegal
		result.Detail = fmt.Sprintf("transition %s -> %s rejected", txn.Status, event.NewStatus)
		o.logger.Warn("webhook transition ignored",
			zap.String("transaction_id", txn.TransactionID),
			zap.String("from", string(txn.Status)),
			zap.String("to", string(event.NewStatus)))
	default:
		result.Outcome = db_models.WebhookOutcomeStoreError
		result.Detail = err.Error()
	}

	// Refund confirmations settle their refund rows even when the
	// transaction-level transition was a no-op: a partial refund leaves the
	// parent completed, so the refunded event is illegal there yet still
	// finalizes the in-flight refund.
	if event.NewStatus == db_models.TxnStatusRefunded && result.Outcome != db_models.WebhookOutcomeStoreError {
		o.settleRefundsFromWebhook(ctx, txn.TransactionID)
	}

	return o.finishWebhook(ctx, provider, body, result, event)
}

// settleRefundsFromWebhook marks in-flight refunds processed when the gateway
// confirms the refund asynchronously instead of in the refund call response.
func (o *paymentOrchestrator) settleRefundsFromWebhook(ctx context.Context, transactionID string) {
	refunds, err := o.refunds.ListByTransactionID(ctx, transactionID)
	if err != nil {
		o.logger.Error("listing refunds after refund webhook", zap.String("transaction_id", transactionID), zap.Error(err))
		return
	}
	for i := range refunds {
		if db_models.RefundStatusTerminal(refunds[i].Status) {
			continue
		}
		if err := o.refunds.UpdateStatus(ctx, refunds[i].RefundID, db_models.RefundStatusProcessed, nil, nil, nil); err != nil {
			o.logger.Error("settling refund from webhook", zap.String("refund_id", refunds[i].RefundID), zap.Error(err))
		}
	}
}

// finishWebhook writes the durable delivery record and fires the ops alert for
// failure outcomes. The record is the dead-letter trail behind the always-200
// response to the gateway.
func (o *paymentOrchestrator) finishWebhook(ctx context.Context, provider db_models.PaymentProvider, body []byte, result *WebhookProcessingResult, event *gateways.NormalizedEvent) *WebhookProcessingResult {
	entry := &db_models.WebhookDeliveryLog{
		Provider: provider,
		Outcome:  result.Outcome,
		Payload:  datatypes.JSON(body),
	}
	if result.TransactionID != "" {
		entry.TransactionID = &result.TransactionID
	}
	if event != nil && event.DedupeKey != "" {
		entry.DedupeKey = &event.DedupeKey
	}
	if result.Detail != "" {
		entry.ErrorDetail = &result.Detail
	}

	if err := o.webhookLogs.Create(ctx, entry); err != nil {
		// Losing both the state change and the log would make the delivery
		// unrecoverable, so this path always pages.
		o.logger.Error("webhook delivery log write failed", zap.Error(err))
		o.alerts.NotifyWebhookFailure(string(provider), result.Outcome, "delivery log write failed: "+err.Error())
	}

	switch result.Outcome {
	case db_models.WebhookOutcomeSignatureInvalid, db_models.WebhookOutcomeStoreError:
		o.alerts.NotifyWebhookFailure(string(provider), result.Outcome, result.Detail)
	}

	o.audit.Info("webhook processed",
		zap.String("provider", string(provider)),
		zap.String("outcome", string(result.Outcome)),
		zap.String("transaction_id", result.TransactionID))
	return result
}

func (o *paymentOrchestrator) GetPaymentStatus(ctx context.Context, transactionID string, sync bool) (*response_models.PaymentStatusResponse, error) {
	txn, err := o.txns.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, utils.ErrTransactionNotFound
	}

	if sync && !db_models.IsTerminal(txn.Status) && txn.ProviderTxnID != nil {
		if gw, ok := o.gateways[txn.Provider]; ok {
			txn = o.reconcile(ctx, gw, txn)
		}
	}

	resp := &response_models.PaymentStatusResponse{
		TransactionID:   txn.TransactionID,
		ReferenceNumber: txn.ReferenceNumber,
		Provider:        txn.Provider,
		Status:          txn.Status,
		Amount:          txn.Amount,
		Currency:        txn.Currency,
		CreatedAt:       utils.FormatRFC3339PH(utils.FromUnixSecondsPH(txn.CreatedAt)),
		UpdatedAt:       utils.FormatRFC3339PH(utils.FromUnixSecondsPH(txn.UpdatedAt)),
	}
	if txn.CompletedAt != nil {
		resp.CompletedAt = utils.FormatRFC3339PH(utils.FromUnixSecondsPH(*txn.CompletedAt))
	}
	if txn.FailureReason != nil {
		resp.FailureReason = *txn.FailureReason
	}
	return resp, nil
}

// reconcile polls the gateway and applies its reported status through the same
// guarded transition path webhooks use. Polling never gets a less-guarded
// write path of its own.
func (o *paymentOrchestrator) reconcile(ctx context.Context, gw gateways.Gateway, txn *db_models.Transaction) *db_models.Transaction {
	status, err := gw.QueryStatus(ctx, *txn.ProviderTxnID)
	if err != nil {
		if errors.Is(err, utils.ErrProviderUnavailable) {
			o.health.MarkUnavailable(string(txn.Provider), o.cfg.ProviderCooldown)
		}
		o.logger.Warn("status sync failed, serving local state",
			zap.String("transaction_id", txn.TransactionID),
			zap.Error(err))
		return txn
	}
	if status.Status == txn.Status {
		return txn
	}

	var failureReason *string
	if status.Status == db_models.TxnStatusFailed {
		reason := "gateway reported " + status.RawStatus
		failureReason = &reason
	}

	updated, err := o.txns.ApplyStatusTransition(ctx, txn.TransactionID, status.Status, time.Now(), "", failureReason)
	if err != nil {
		if !errors.Is(err, utils.ErrIllegalTransition) && !errors.Is(err, utils.ErrAlreadyApplied) {
			o.logger.Error("reconciliation transition failed",
				zap.String("transaction_id", txn.TransactionID),
				zap.Error(err))
		}
		return txn
	}
	o.auditTransition(txn.TransactionID, string(txn.Status), updated.Status, "status sync against "+string(txn.Provider))
	return updated
}

func (o *paymentOrchestrator) ProcessRefund(ctx context.Context, req request_models.RefundRequest) (*response_models.RefundResponse, error) {
	txn, err := o.txns.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, utils.ErrTransactionNotFound
	}
	if txn.Status != db_models.TxnStatusCompleted {
		return nil, fmt.Errorf("%w: transaction is %s", utils.ErrRefundNotAllowed, txn.Status)
	}

	// In-flight refunds count against the balance: a gateway-approved refund
	// awaiting webhook confirmation already has money moving, so a second
	// request cannot be allowed to spend the same pesos.
	reserved, err := o.refunds.SumReserved(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	remaining := txn.Amount.Sub(reserved)

	amount := remaining
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: refund amount must be positive", utils.ErrValidation)
	}
	if amount.GreaterThan(remaining) {
		return nil, fmt.Errorf("%w: refund amount %s exceeds refundable balance %s",
			utils.ErrValidation, amount.StringFixed(2), remaining.StringFixed(2))
	}

	refund := &db_models.Refund{
		RefundID:      utils.NewRefundID(),
		TransactionID: txn.TransactionID,
		Amount:        amount,
		Reason:        req.Reason,
		Status:        db_models.RefundStatusPending,
		RequestedBy:   req.RequestedBy,
		Metadata:      toJSON(req.Metadata),
	}
	if err := o.refunds.Create(ctx, refund); err != nil {
		return nil, err
	}
	o.audit.Info("refund requested",
		zap.String("refund_id", refund.RefundID),
		zap.String("transaction_id", txn.TransactionID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("requested_by", req.RequestedBy))

	full := reserved.Add(amount).Equal(txn.Amount)

	// Cash refunds are settled by the operator on the spot.
	if txn.Provider == db_models.ProviderCash {
		if err := o.refunds.UpdateStatus(ctx, refund.RefundID, db_models.RefundStatusProcessed, &req.RequestedBy, nil, nil); err != nil {
			return nil, err
		}
		if full {
			o.markRefunded(ctx, txn)
		}
		return &response_models.RefundResponse{
			RefundID:      refund.RefundID,
			TransactionID: txn.TransactionID,
			Amount:        amount,
			Status:        db_models.RefundStatusProcessed,
		}, nil
	}

	gw, ok := o.gateways[txn.Provider]
	if !ok || txn.ProviderTxnID == nil {
		reason := "no gateway route for refund"
		_ = o.refunds.UpdateStatus(ctx, refund.RefundID, db_models.RefundStatusFailed, nil, nil, &reason)
		return nil, fmt.Errorf("%w: transaction has no gateway reference", utils.ErrRefundNotAllowed)
	}

	// A full refund parks the transaction in refund_pending while the money
	// moves; partial refunds leave it completed and only track balance. Losing
	// the parking race means another refund got there first, and this row must
	// not linger as pending.
	if full {
		if _, err := o.txns.ApplyStatusTransition(ctx, txn.TransactionID, db_models.TxnStatusRefundPending, time.Now(), "", nil); err != nil {
			reason := "concurrent refund already in flight"
			_ = o.refunds.UpdateStatus(ctx, refund.RefundID, db_models.RefundStatusRejected, nil, nil, &reason)
			return nil, fmt.Errorf("%w: parking transaction for refund: %v", utils.ErrPersistence, err)
		}
	}

	res, err := gw.Refund(ctx, *txn.ProviderTxnID, amount, req.Reason)
	if err != nil {
		if errors.Is(err, utils.ErrProviderUnavailable) {
			o.health.MarkUnavailable(string(txn.Provider), o.cfg.ProviderCooldown)
		}
		reason := err.Error()
		_ = o.refunds.UpdateStatus(ctx, refund.RefundID, db_models.RefundStatusFailed, nil, nil, &reason)
		if full {
			// Failed refunds must not affect the parent's status.
			if _, rbErr := o.txns.ApplyStatusTransition(ctx, txn.TransactionID, db_models.TxnStatusCompleted, time.Now(), "", nil); rbErr != nil {
				o.logger.Error("unparking transaction after refund failure",
					zap.String("transaction_id", txn.TransactionID), zap.Error(rbErr))
			}
		}
		return nil, err
	}

	status := res.Status
	switch status {
	case db_models.RefundStatusProcessed:
		if err := o.refunds.UpdateStatus(ctx, refund.RefundID, status, &req.RequestedBy, &res.ProviderRefundID, nil); err != nil {
			return nil, err
		}
		if full {
			if _, err := o.txns.ApplyStatusTransition(ctx, txn.TransactionID, db_models.TxnStatusRefunded, time.Now(), "", nil); err != nil {
				o.logger.Error("finalizing refunded transaction",
					zap.String("transaction_id", txn.TransactionID), zap.Error(err))
			}
		}
	case db_models.RefundStatusFailed:
		reason := "gateway reported " + res.RawStatus
		if err := o.refunds.UpdateStatus(ctx, refund.RefundID, status, nil, &res.ProviderRefundID, &reason); err != nil {
			return nil, err
		}
		if full {
			if _, rbErr := o.txns.ApplyStatusTransition(ctx, txn.TransactionID, db_models.TxnStatusCompleted, time.Now(), "", nil); rbErr != nil {
				o.logger.Error("unparking transaction after refund failure",
					zap.String("transaction_id", txn.TransactionID), zap.Error(rbErr))
			}
		}
	default:
		// Accepted by the gateway, confirmation arrives by webhook.
		if err := o.refunds.UpdateStatus(ctx, refund.RefundID, db_models.RefundStatusApproved, nil, &res.ProviderRefundID, nil); err != nil {
			return nil, err
		}
		status = db_models.RefundStatusApproved
	}

	o.audit.Info("refund settled with gateway",
		zap.String("refund_id", refund.RefundID),
		zap.String("status", string(status)))

	return &response_models.RefundResponse{
		RefundID:      refund.RefundID,
		TransactionID: txn.TransactionID,
		Amount:        amount,
		Status:        status,
	}, nil
}

func (o *paymentOrchestrator) markRefunded(ctx context.Context, txn *db_models.Transaction) {
	if _, err := o.txns.ApplyStatusTransition(ctx, txn.TransactionID, db_models.TxnStatusRefundPending, time.Now(), "", nil); err != nil {
		o.logger.Error("parking transaction for refund", zap.String("transaction_id", txn.TransactionID), zap.Error(err))
		return
	}
	if _, err := o.txns.ApplyStatusTransition(ctx, txn.TransactionID, db_models.TxnStatusRefunded, time.Now(), "", nil); err != nil {
		o.logger.Error("finalizing refunded transaction", zap.String("transaction_id", txn.TransactionID), zap.Error(err))
	}
}

// persistFailure escalates a create failure that happened after the gateway
// already accepted the charge. Every cause pages, duplicates included: the
// charge exists remotely either way.
func (o *paymentOrchestrator) persistFailure(txn *db_models.Transaction, err error) error {
	o.audit.Error("transaction persistence failed after gateway call",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("provider", string(txn.Provider)),
		zap.Error(err))
	o.alerts.NotifyUnreconciledCharge(txn.TransactionID, string(txn.Provider), err.Error())
	return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
}

func (o *paymentOrchestrator) auditTransition(transactionID, from string, to db_models.TransactionStatus, cause string) {
	o.audit.Info("transaction status transition",
		zap.String("transaction_id", transactionID),
		zap.String("from", from),
		zap.String("to", string(to)),
		zap.String("cause", cause))
}

func toJSON(m map[string]string) datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON([]byte("{}"))
	}
	b, _ := json.Marshal(m)
	return datatypes.JSON(b)
}

package services

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"opstower/internal/models/db_models"
)

// WebhookRouter identifies which gateway produced an inbound notification and
// hands it to the orchestrator. Detection never guesses: an ambiguous payload
// is reported as unidentified and nothing is mutated.
type WebhookRouter interface {
	DetectProvider(header http.Header, body []byte) (db_models.PaymentProvider, bool)

	// Route returns one result per payment the delivery settled.
	Route(ctx context.Context, header http.Header, body []byte) ([]*WebhookProcessingResult, bool)
}

func NewWebhookRouter(orchestrator PaymentOrchestrator, logger *zap.Logger) WebhookRouter {
	return &webhookRouter{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type webhookRouter struct {
	orchestrator PaymentOrchestrator
	logger       *zap.Logger
}

func (r *webhookRouter) DetectProvider(header http.Header, body []byte) (db_models.PaymentProvider, bool) {
	// Signature headers are the strongest signal; check them first.
	if header.Get("X-Maya-Signature") != "" {
		return db_models.ProviderMaya, true
	}
	if header.Get("X-Ebanx-Signature") != "" {
		return db_models.ProviderGCash, true
	}

	// Fall back to structural matching on provider-specific field names.
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(body, &shape); err != nil {
		return "", false
	}
	_, hasPaymentStatus := shape["paymentStatus"]
	_, hasRequestRef := shape["requestReferenceNumber"]
	_, hasHashCodes := shape["hash_codes"]
	_, hasOperation := shape["operation"]

	mayaShaped := hasPaymentStatus || hasRequestRef
	ebanxShaped := hasHashCodes && hasOperation

	switch {
	case mayaShaped && !ebanxShaped:
		return db_models.ProviderMaya, true
	case ebanxShaped && !mayaShaped:
		return db_models.ProviderGCash, true
	}
	return "", false
}

func (r *webhookRouter) Route(ctx context.Context, header http.Header, body []byte) ([]*WebhookProcessingResult, bool) {
	provider, ok := r.DetectProvider(header, body)
	if !ok {
		r.logger.Warn("webhook from unidentifiable provider dropped",
			zap.Int("body_bytes", len(body)))
		return nil, false
	}
	return r.orchestrator.ApplyWebhook(ctx, provider, body, header), true
}

package db_models

import "gorm.io/datatypes"

type WebhookOutcome string

const (
	WebhookOutcomeApplied          WebhookOutcome = "applied"
	WebhookOutcomeAlreadyApplied   WebhookOutcome = "already_applied"
	WebhookOutcomeIgnoredIllegal   WebhookOutcome = "ignored_illegal"
	WebhookOutcomeUnknownTxn       WebhookOutcome = "unknown_transaction"
	WebhookOutcomeSignatureInvalid WebhookOutcome = "signature_invalid"
	WebhookOutcomeParseFailed      WebhookOutcome = "parse_failed"
	WebhookOutcomeStoreError       WebhookOutcome = "store_error"
)

// WebhookDeliveryLog is the durable record of every inbound gateway
// notification. Gateways always get a 200 back, so this table is the
// dead-letter trail operators reconcile from when processing failed.
type WebhookDeliveryLog struct {
	BaseModel
	Provider      PaymentProvider `gorm:"index;size:16"`
	TransactionID *string         `gorm:"index;size:64"`
	DedupeKey     *string         `gorm:"size:128"`
	Outcome       WebhookOutcome  `gorm:"index;size:24"`
	ErrorDetail   *string
	Payload       datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

func (WebhookDeliveryLog) TableName() string { return "webhook_delivery_logs" }

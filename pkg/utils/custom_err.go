package utils

import "errors"

var (
	// Caller-side errors, safe to surface with a message.
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateReference = errors.New("duplicate reference number")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRefundNotFound      = errors.New("refund not found")
	ErrRefundNotAllowed    = errors.New("refund not allowed for transaction state")

	// Gateway-side errors.
	ErrProviderRejected    = errors.New("provider rejected the request")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrUnknownProvider     = errors.New("unknown payment provider")

	// Webhook/state errors. IllegalTransition and AlreadyApplied are expected
	// under duplicate or racing deliveries and must stay no-ops for callers.
	ErrSignatureInvalid  = errors.New("webhook signature invalid")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrAlreadyApplied    = errors.New("webhook event already applied")

	// Store write failed after a possibly-successful gateway call. Escalated,
	// never swallowed: money may already be in flight at the gateway.
	ErrPersistence = errors.New("persistence failure")

	ErrDatabaseError = errors.New("database error")
)

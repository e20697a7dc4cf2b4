package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTransactionID returns the caller-visible transaction identifier.
func NewTransactionID() string {
	return "TXN-" + uuid.New().String()
}

// NewReferenceNumber returns the human-readable reference printed on receipts
// and quoted to gateway support. Unique by construction (uuid suffix), but the
// store still enforces uniqueness with a constraint.
func NewReferenceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
	return fmt.Sprintf("OPS-%s-%s", time.Now().Format("20060102"), suffix)
}

// NewRefundID returns the caller-visible refund identifier.
func NewRefundID() string {
	return "RFD-" + uuid.New().String()
}

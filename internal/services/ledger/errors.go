package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InvalidAmountError signals a non-positive or over-precision amount. It is
// raised before any storage access and is never retried.
type InvalidAmountError struct {
	Amount decimal.Decimal
	Reason string
}

func (e *InvalidAmountError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid amount %s: %s", e.Amount, e.Reason)
	}
	return fmt.Sprintf("invalid amount %s: amount must be positive", e.Amount)
}

// TransactionFailedError wraps an unexpected storage failure during
// transaction creation, preserving the original cause for diagnostics.
type TransactionFailedError struct {
	Message string
	Cause   error
}

func (e *TransactionFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TransactionFailedError) Unwrap() error {
	return e.Cause
}

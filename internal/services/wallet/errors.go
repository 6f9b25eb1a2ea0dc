package wallet

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Each failure kind is a distinct error type carrying its structured
// payload, so callers switch with errors.As instead of string inspection.

// WalletNotFoundError: no wallet exists for the (user, asset type) pair.
type WalletNotFoundError struct {
	UserID      string
	AssetTypeID string
}

func (e *WalletNotFoundError) Error() string {
	return fmt.Sprintf("wallet not found for user %s and asset type %s", e.UserID, e.AssetTypeID)
}

// SystemWalletNotFoundError: the treasury wallet for an asset type is
// missing. This is a deployment defect, not a user input error.
type SystemWalletNotFoundError struct {
	AssetTypeID string
}

func (e *SystemWalletNotFoundError) Error() string {
	return fmt.Sprintf("system wallet not found for asset type %s", e.AssetTypeID)
}

// InsufficientBalanceError: a spend exceeds the balance computed under lock.
type InsufficientBalanceError struct {
	WalletID  string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %s, available %s", e.Requested, e.Available)
}

// DuplicateTransactionError: the referenceId has already been committed.
// Callers should treat this as "already applied" and fetch the prior result.
type DuplicateTransactionError struct {
	ReferenceID string
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf("transaction with reference id %s already exists", e.ReferenceID)
}

// LimitExceededError: a per-transaction, daily or monthly cap was breached.
type LimitExceededError struct {
	Kind      string
	Requested decimal.Decimal
	Max       decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit exceeded: requested %s, max %s", e.Kind, e.Requested, e.Max)
}

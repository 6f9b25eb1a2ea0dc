package wallet

import (
	"tally/internal/services/ledger"

	"github.com/shopspring/decimal"
)

// ValidateAmount rejects non-positive amounts and amounts carrying more
// fractional digits than maxDecimalPlaces. Pure; no storage access.
func ValidateAmount(amount decimal.Decimal, maxDecimalPlaces int) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return &ledger.InvalidAmountError{Amount: amount, Reason: "amount must be positive"}
	}
	if amount.Exponent() < -int32(maxDecimalPlaces) && !amount.Equal(amount.Round(int32(maxDecimalPlaces))) {
		return &ledger.InvalidAmountError{Amount: amount, Reason: "too many decimal places"}
	}
	return nil
}

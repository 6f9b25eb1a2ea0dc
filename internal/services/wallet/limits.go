package wallet

import (
	"context"
	"fmt"
	"time"

	"tally/internal/config"
	"tally/internal/repositories"

	"github.com/shopspring/decimal"
)

// Limit kinds reported by LimitExceededError.
const (
	LimitKindMaxTopup     = "max top-up"
	LimitKindMaxSpend     = "max spend"
	LimitKindDailySpend   = "daily spend"
	LimitKindMonthlySpend = "monthly spend"
)

// LimitEnforcer checks proposed transactions against per-transaction, daily
// and monthly caps. Windows are wall-clock local day and calendar month
// starts at check time, not rolling windows. Enforcement runs before the
// atomic scope: it is a fraud guard that may race with concurrent spends,
// not a strict invariant.
type LimitEnforcer struct {
	store  repositories.LedgerRepository
	limits config.TransactionLimits
}

func NewLimitEnforcer(store repositories.LedgerRepository, limits config.TransactionLimits) *LimitEnforcer {
	return &LimitEnforcer{store: store, limits: limits}
}

// CheckLimits fails with LimitExceededError when the proposed amount breaches
// a cap for the operation kind ("topup" or "spend"). Daily and monthly
// aggregation applies to spends only.
func (e *LimitEnforcer) CheckLimits(ctx context.Context, userID, assetTypeID string, amount decimal.Decimal, operation string) error {
	if operation == "topup" && amount.GreaterThan(e.limits.MaxTopupAmount) {
		return &LimitExceededError{Kind: LimitKindMaxTopup, Requested: amount, Max: e.limits.MaxTopupAmount}
	}
	if operation != "spend" {
		return nil
	}

	if amount.GreaterThan(e.limits.MaxSpendAmount) {
		return &LimitExceededError{Kind: LimitKindMaxSpend, Requested: amount, Max: e.limits.MaxSpendAmount}
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	dailySpend, err := e.store.SumSpendSince(ctx, userID, assetTypeID, startOfDay)
	if err != nil {
		return fmt.Errorf("failed to check daily limit: %w", err)
	}
	if total := dailySpend.Add(amount); total.GreaterThan(e.limits.MaxDailySpend) {
		return &LimitExceededError{Kind: LimitKindDailySpend, Requested: total, Max: e.limits.MaxDailySpend}
	}

	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	monthlySpend, err := e.store.SumSpendSince(ctx, userID, assetTypeID, startOfMonth)
	if err != nil {
		return fmt.Errorf("failed to check monthly limit: %w", err)
	}
	if total := monthlySpend.Add(amount); total.GreaterThan(e.limits.MaxMonthlySpend) {
		return &LimitExceededError{Kind: LimitKindMonthlySpend, Requested: total, Max: e.limits.MaxMonthlySpend}
	}

	return nil
}

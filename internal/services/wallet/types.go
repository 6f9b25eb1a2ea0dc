package wallet

import (
	"time"

	"tally/internal/config"

	"github.com/shopspring/decimal"
)

// OperationParams is the shared request shape for top-up, bonus and spend.
type OperationParams struct {
	UserID      string
	AssetTypeID string
	Amount      decimal.Decimal
	ReferenceID string
	Metadata    map[string]interface{}
}

// OperationResult is the shared response shape.
type OperationResult struct {
	Success       bool            `json:"success"`
	TransactionID string          `json:"transactionId"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	Message       string          `json:"message"`
}

// Config holds the orchestrator's policy knobs.
type Config struct {
	Limits     config.TransactionLimits
	Validation config.ValidationRules
	Retry      config.RetryPolicy
}

// MetricsCollector receives one record per operation: name, outcome, latency,
// amount and error kind. Implementations are injected; the orchestrator never
// reaches for a global collector.
type MetricsCollector interface {
	RecordOperation(operation, status string, latency time.Duration, amount decimal.Decimal, errorKind string)
}

// NoopMetricsCollector discards all records.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOperation(string, string, time.Duration, decimal.Decimal, string) {}

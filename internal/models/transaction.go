package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction types
const (
	TransactionTypeTopup = "TOPUP"
	TransactionTypeBonus = "BONUS"
	TransactionTypeSpend = "SPEND"
)

// Transaction statuses. A transaction is created PENDING and flipped to
// SUCCESS after both ledger entries are written. Failed transactions are
// rolled back entirely; there is no persisted FAILED state.
const (
	TransactionStatusPending = "PENDING"
	TransactionStatusSuccess = "SUCCESS"
)

// Transaction is an immutable record of one business event. ReferenceID is
// unique across all transactions and serves as the ledger-level replay guard,
// distinct from the API-level idempotency key.
type Transaction struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	Type        string          `gorm:"not null;index" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	ReferenceID string          `gorm:"uniqueIndex;not null;size:255" json:"referenceId"`
	Status      string          `gorm:"not null;default:'PENDING';index" json:"status"`
	Metadata    JSON            `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time       `json:"-"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Entry types
const (
	EntryTypeDebit  = "DEBIT"
	EntryTypeCredit = "CREDIT"
)

// LedgerEntry is an immutable posting against exactly one wallet or one
// system wallet (never both, never neither). Every transaction owns exactly
// two entries, one DEBIT and one CREDIT, with equal amounts.
type LedgerEntry struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID  string          `gorm:"type:uuid;not null;index" json:"transactionId"`
	WalletID       *string         `gorm:"type:uuid;index" json:"walletId,omitempty"`
	SystemWalletID *string         `gorm:"type:uuid;index" json:"systemWalletId,omitempty"`
	EntryType      string          `gorm:"not null" json:"entryType"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	CreatedAt      time.Time       `gorm:"index" json:"createdAt"`
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

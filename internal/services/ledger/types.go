package ledger

import (
	"time"

	"tally/internal/models"

	"github.com/shopspring/decimal"
)

// CreateParams describes one double-entry transaction. Exactly one of
// FromWalletID/FromSystemWalletID and one of ToWalletID/ToSystemWalletID must
// be set; the debit posts against the source, the credit against the
// destination.
type CreateParams struct {
	Type               string
	Amount             decimal.Decimal
	FromWalletID       *string
	FromSystemWalletID *string
	ToWalletID         *string
	ToSystemWalletID   *string
	ReferenceID        string
	Metadata           models.JSON
}

// Result reports the committed transaction.
type Result struct {
	TransactionID string
	Status        string
}

// Posting is one ledger entry joined with its parent transaction, as
// returned by GetWalletTransactions.
type Posting struct {
	EntryID         string          `json:"entryId" gorm:"column:entry_id"`
	EntryType       string          `json:"entryType" gorm:"column:entry_type"`
	Amount          decimal.Decimal `json:"amount" gorm:"column:amount"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"column:created_at"`
	TransactionID   string          `json:"transactionId" gorm:"column:transaction_id"`
	TransactionType string          `json:"transactionType" gorm:"column:transaction_type"`
	Status          string          `json:"status" gorm:"column:status"`
	Metadata        models.JSON     `json:"metadata,omitempty" gorm:"column:metadata"`
}

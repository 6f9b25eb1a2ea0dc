package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wallet belongs to exactly one (user, asset type) pair. The composite unique
// index enforces at most one wallet per pair. Wallets carry no stored balance;
// balances are derived from ledger entries.
type Wallet struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string `gorm:"type:uuid;not null;uniqueIndex:idx_wallets_user_asset" json:"userId"`
	AssetTypeID string `gorm:"type:uuid;not null;uniqueIndex:idx_wallets_user_asset" json:"assetTypeId"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

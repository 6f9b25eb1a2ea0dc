package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemWallet is the treasury counterparty for top-ups, bonuses and spends.
// Exactly one exists per asset type. System wallets may go negative; they are
// exempt from the non-negative balance rule that applies to user wallets.
type SystemWallet struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	AssetTypeID string `gorm:"type:uuid;uniqueIndex;not null" json:"assetTypeId"`
	Name        string `gorm:"not null" json:"name"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (w *SystemWallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetType is a named currency or credit class ("Gold Coins", "Gems", ...).
// Asset types are immutable once a wallet references them.
type AssetType struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   time.Time
}

func (a *AssetType) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

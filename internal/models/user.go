package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns at most one wallet per asset type.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Name      string `json:"name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

package models

import "time"

// IdempotencyKey maps an opaque client key to a previously produced response
// body. Keys expire after a fixed TTL; expired rows are treated as absent and
// purged lazily on lookup or in bulk by the cleanup job.
type IdempotencyKey struct {
	Key       string    `gorm:"primaryKey;size:255" json:"key"`
	Response  JSON      `gorm:"type:jsonb" json:"response"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

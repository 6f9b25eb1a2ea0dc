package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tally/internal/models"

	"gorm.io/gorm"
)

var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

// IdempotencyRepository persists idempotency records with expiry.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*models.IdempotencyKey, error)
	Create(ctx context.Context, record *models.IdempotencyKey) error
	Delete(ctx context.Context, key string) error
	// DeleteExpired removes every record whose expiry is before now and
	// returns the number of rows deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type idempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	var record models.IdempotencyKey
	err := r.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdempotencyKeyNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	return &record, nil
}

func (r *idempotencyRepository) Create(ctx context.Context, record *models.IdempotencyKey) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

func (r *idempotencyRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Delete(&models.IdempotencyKey{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete idempotency key: %w", err)
	}
	return nil
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.IdempotencyKey{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency keys: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Package idempotency maps caller-supplied keys to previously produced
// responses so retried requests replay instead of re-executing. The store
// never runs the operation itself: callers check before executing and store
// after success, using the same key for retried requests.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tally/internal/models"
	"tally/internal/repositories"

	"go.uber.org/zap"
)

// InvalidKeyError signals a key whose length falls outside the configured
// bounds.
type InvalidKeyError struct {
	Length int
	Min    int
	Max    int
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid idempotency key: length %d outside [%d, %d]", e.Length, e.Min, e.Max)
}

// ValidateKey checks the key length against the configured [min, max] bound.
func ValidateKey(key string, min, max int) error {
	if len(key) < min || len(key) > max {
		return &InvalidKeyError{Length: len(key), Min: min, Max: max}
	}
	return nil
}

// CheckResult reports whether a key was seen and the response it produced.
type CheckResult struct {
	Exists   bool
	Response models.JSON
}

// Service is the idempotency store.
type Service interface {
	// CheckKey returns the prior response for the key, or Exists=false when
	// the key is absent or expired. Expired records are deleted lazily.
	CheckKey(ctx context.Context, key string) (*CheckResult, error)
	// StoreKey persists the response under the key with the configured TTL.
	StoreKey(ctx context.Context, key string, response models.JSON) error
	// CleanupExpired bulk-deletes all expired records and returns the count.
	CleanupExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo   repositories.IdempotencyRepository
	ttl    time.Duration
	logger *zap.Logger
}

func NewService(repo repositories.IdempotencyRepository, ttl time.Duration, logger *zap.Logger) Service {
	if repo == nil {
		panic("repo is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: repo, ttl: ttl, logger: logger}
}

func (s *service) CheckKey(ctx context.Context, key string) (*CheckResult, error) {
	record, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrIdempotencyKeyNotFound) {
			return &CheckResult{Exists: false}, nil
		}
		return nil, err
	}

	if record.ExpiresAt.Before(time.Now()) {
		if err := s.repo.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete expired idempotency key", zap.String("key", key), zap.Error(err))
		}
		return &CheckResult{Exists: false}, nil
	}

	return &CheckResult{Exists: true, Response: record.Response}, nil
}

func (s *service) StoreKey(ctx context.Context, key string, response models.JSON) error {
	return s.repo.Create(ctx, &models.IdempotencyKey{
		Key:       key,
		Response:  response,
		ExpiresAt: time.Now().Add(s.ttl),
	})
}

func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("cleaned up expired idempotency keys", zap.Int64("count", count))
	}
	return count, nil
}

package repositories

import (
	"context"
	"time"
)

// CacheRepository is the read-path cache used for wallet balances and
// transaction history. Cache failures are soft: callers log and fall through
// to the database, they never fail a request on a cache error.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	FlushAll(ctx context.Context) error
	Close() error
}

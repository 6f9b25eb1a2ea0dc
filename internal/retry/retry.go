// Package retry wraps storage operations in bounded exponential-backoff
// retry. Only transient storage failures are retried; everything else
// propagates on first occurrence.
package retry

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Config controls attempt count and backoff shape.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns the standard policy: 3 attempts, 100ms initial delay,
// 5s cap, doubling between attempts.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}
}

// Retrier executes operations under a retry policy.
type Retrier struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{cfg: cfg, logger: logger}
}

// Do runs fn up to MaxAttempts times. Retryable failures sleep for
// min(InitialDelay * Multiplier^(attempt-1), MaxDelay) before the next
// attempt; after the last attempt the last error propagates unchanged.
// Non-retryable errors propagate immediately.
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if !IsRetryable(err) {
				return err
			}
			if attempt == r.cfg.MaxAttempts {
				return err
			}

			delay := r.backoff(attempt)
			r.logger.Warn("retryable storage error",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.cfg.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(err),
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			continue
		}
		return nil
	}

	return lastErr
}

func (r *Retrier) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Multiplier, float64(attempt-1)))
	if r.cfg.MaxDelay > 0 && delay > r.cfg.MaxDelay {
		delay = r.cfg.MaxDelay
	}
	return delay
}

// Postgres error classes that indicate a transient condition worth retrying:
// serialization failure, deadlock, lock-wait timeout, pool exhaustion and
// connection-level failures.
var retryableCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"53300": true, // too_many_connections
	"57014": true, // query_canceled (lock timeout surfaces as cancellation)
}

var retryableFragments = []string{
	"deadlock",
	"lock timeout",
	"connection refused",
	"connection reset",
	"broken pipe",
	"bad connection",
	"conn closed",
	"i/o timeout",
}

// IsRetryable classifies an error as a transient storage failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if retryableCodes[pgErr.Code] {
			return true
		}
		// Class 08: connection exceptions.
		if strings.HasPrefix(pgErr.Code, "08") {
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

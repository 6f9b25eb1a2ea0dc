// Package config centralizes application settings. All values come from
// environment variables with sensible defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		log.Printf("invalid value for %s: %q, using default %d", key, val, defaultVal)
	}
	return defaultVal
}

// GetFloatEnv returns a float64 environment variable or a default value.
func GetFloatEnv(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s: %q, using default %v", key, val, defaultVal)
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("invalid value for %s: %q, using default %s", key, val, defaultVal)
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// TransactionLimits holds the per-transaction, daily and monthly caps
// consumed by the limit enforcer.
type TransactionLimits struct {
	MaxTopupAmount  decimal.Decimal
	MaxSpendAmount  decimal.Decimal
	MaxDailySpend   decimal.Decimal
	MaxMonthlySpend decimal.Decimal
}

// ValidationRules bounds amount precision and idempotency key length.
type ValidationRules struct {
	MaxDecimalPlaces        int
	IdempotencyKeyMinLength int
	IdempotencyKeyMaxLength int
}

// RetryPolicy configures the retry executor for transient storage errors.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// RateLimitSettings configures the per-route request limiter.
type RateLimitSettings struct {
	Window         time.Duration
	GeneralMax     int
	TransactionMax int
	BalanceMax     int
}

// IdempotencySettings configures response replay storage.
type IdempotencySettings struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// MetricsSettings configures the in-memory stats window.
type MetricsSettings struct {
	DefaultWindow time.Duration
	MaxRecords    int
}

// Config is the full application configuration.
type Config struct {
	TransactionLimits TransactionLimits
	Validation        ValidationRules
	Retry             RetryPolicy
	RateLimit         RateLimitSettings
	Idempotency       IdempotencySettings
	Metrics           MetricsSettings
}

// Load reads the full configuration from the environment.
func Load() Config {
	return Config{
		TransactionLimits: TransactionLimits{
			MaxTopupAmount:  decimal.NewFromInt(int64(GetIntEnv("MAX_TOPUP_AMOUNT", 10000))),
			MaxSpendAmount:  decimal.NewFromInt(int64(GetIntEnv("MAX_SPEND_AMOUNT", 5000))),
			MaxDailySpend:   decimal.NewFromInt(int64(GetIntEnv("MAX_DAILY_SPEND", 20000))),
			MaxMonthlySpend: decimal.NewFromInt(int64(GetIntEnv("MAX_MONTHLY_SPEND", 100000))),
		},
		Validation: ValidationRules{
			MaxDecimalPlaces:        GetIntEnv("MAX_DECIMAL_PLACES", 2),
			IdempotencyKeyMinLength: GetIntEnv("IDEMPOTENCY_KEY_MIN_LENGTH", 1),
			IdempotencyKeyMaxLength: GetIntEnv("IDEMPOTENCY_KEY_MAX_LENGTH", 255),
		},
		Retry: RetryPolicy{
			MaxAttempts:  GetIntEnv("RETRY_MAX_ATTEMPTS", 3),
			InitialDelay: GetDurationEnv("RETRY_INITIAL_DELAY", 100*time.Millisecond),
			MaxDelay:     GetDurationEnv("RETRY_MAX_DELAY", 5*time.Second),
			Multiplier:   GetFloatEnv("RETRY_BACKOFF_MULTIPLIER", 2),
		},
		RateLimit: RateLimitSettings{
			Window:         GetDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			GeneralMax:     GetIntEnv("RATE_LIMIT_GENERAL_MAX", 100),
			TransactionMax: GetIntEnv("RATE_LIMIT_TRANSACTION_MAX", 20),
			BalanceMax:     GetIntEnv("RATE_LIMIT_BALANCE_MAX", 50),
		},
		Idempotency: IdempotencySettings{
			TTL:             GetDurationEnv("IDEMPOTENCY_KEY_TTL", 24*time.Hour),
			CleanupInterval: GetDurationEnv("IDEMPOTENCY_CLEANUP_INTERVAL", time.Hour),
		},
		Metrics: MetricsSettings{
			DefaultWindow: GetDurationEnv("METRICS_DEFAULT_WINDOW", 5*time.Minute),
			MaxRecords:    GetIntEnv("METRICS_MAX_RECORDS", 1000),
		},
	}
}

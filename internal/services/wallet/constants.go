package wallet

import "time"

// Pagination bounds for transaction history.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Cache keys and durations
const (
	WalletCachePrefix = "wallet"
	balanceCacheTTL   = 5 * time.Minute
)

func balanceCacheKey(walletID string) string {
	return WalletCachePrefix + ":balance:" + walletID
}

func historyCacheKey(walletID string) string {
	return WalletCachePrefix + ":history:" + walletID
}

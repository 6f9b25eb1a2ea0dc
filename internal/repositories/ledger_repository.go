package repositories

import (
	"context"
	"errors"
	"time"

	"tally/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrSystemWalletNotFound = errors.New("system wallet not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrAssetTypeNotFound    = errors.New("asset type not found")
	ErrDuplicateWallet      = errors.New("wallet already exists")
	ErrDuplicateReference   = errors.New("reference id already exists")
)

// LedgerRepository defines the storage operations the transaction engine
// needs: row lookups, exclusive wallet locking, entry aggregation and atomic
// multi-statement execution. Implementations delegate isolation and locking
// to the underlying storage engine.
type LedgerRepository interface {
	// Wallet operations
	CreateWallet(wallet *models.Wallet) error
	GetWalletByID(id string) (*models.Wallet, error)
	GetWalletByUserAndAsset(userID, assetTypeID string) (*models.Wallet, error)
	// LockWallet acquires an exclusive row-level lock on the wallet for the
	// remainder of the enclosing atomic scope. Calling it outside
	// ExecuteInTransaction provides no protection.
	LockWallet(walletID string) (*models.Wallet, error)

	// System wallet operations
	GetSystemWalletByAssetType(assetTypeID string) (*models.SystemWallet, error)

	// Transaction operations
	CreateTransaction(txn *models.Transaction) error
	GetTransactionByID(id string) (*models.Transaction, error)
	GetTransactionByReference(referenceID string) (*models.Transaction, error)
	UpdateTransactionStatus(id, status string) error

	// Ledger entry operations
	CreateLedgerEntry(entry *models.LedgerEntry) error
	GetEntriesByTransaction(transactionID string) ([]models.LedgerEntry, error)
	SumWalletEntries(ctx context.Context, walletID, entryType string) (decimal.Decimal, error)
	GetWalletPostings(ctx context.Context, walletID string, limit, offset int, dest interface{}) error

	// SumSpendSince aggregates successful SPEND debits against the user's
	// wallet for the given asset type from `since` to now.
	SumSpendSince(ctx context.Context, userID, assetTypeID string, since time.Time) (decimal.Decimal, error)

	// ExecuteInTransaction runs fn inside one atomic storage scope. Any error
	// returned by fn rolls back every statement issued through the scoped
	// repository it receives.
	ExecuteInTransaction(fn func(LedgerRepository) error) error
}

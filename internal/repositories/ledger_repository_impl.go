package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tally/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) CreateWallet(wallet *models.Wallet) error {
	if err := r.db.Create(wallet).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateWallet
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetWalletByID(id string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.First(&wallet, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletByUserAndAsset(userID, assetTypeID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Where("user_id = ? AND asset_type_id = ?", userID, assetTypeID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// LockWallet issues SELECT ... FOR UPDATE on the wallet row. The lock is held
// until the enclosing transaction commits or rolls back, serializing all
// concurrent operations against the same wallet.
func (r *ledgerRepository) LockWallet(walletID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, "id = ?", walletID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetSystemWalletByAssetType(assetTypeID string) (*models.SystemWallet, error) {
	var wallet models.SystemWallet
	err := r.db.Where("asset_type_id = ?", assetTypeID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSystemWalletNotFound
		}
		return nil, fmt.Errorf("failed to get system wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) CreateTransaction(txn *models.Transaction) error {
	if err := r.db.Create(txn).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetTransactionByID(id string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.First(&txn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (r *ledgerRepository) GetTransactionByReference(referenceID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.Where("reference_id = ?", referenceID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}
	return &txn, nil
}

func (r *ledgerRepository) UpdateTransactionStatus(id, status string) error {
	result := r.db.Model(&models.Transaction{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *ledgerRepository) CreateLedgerEntry(entry *models.LedgerEntry) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetEntriesByTransaction(transactionID string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.Where("transaction_id = ?", transactionID).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) SumWalletEntries(ctx context.Context, walletID, entryType string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("wallet_id = ? AND entry_type = ?", walletID, entryType).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return total, nil
}

func (r *ledgerRepository) GetWalletPostings(ctx context.Context, walletID string, limit, offset int, dest interface{}) error {
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Joins("JOIN transactions ON transactions.id = ledger_entries.transaction_id").
		Where("ledger_entries.wallet_id = ?", walletID).
		Select(`ledger_entries.id AS entry_id,
			ledger_entries.entry_type,
			ledger_entries.amount,
			ledger_entries.created_at,
			transactions.id AS transaction_id,
			transactions.type AS transaction_type,
			transactions.status,
			transactions.metadata`).
		Order("ledger_entries.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(dest).Error
	if err != nil {
		return fmt.Errorf("failed to get wallet postings: %w", err)
	}
	return nil
}

func (r *ledgerRepository) SumSpendSince(ctx context.Context, userID, assetTypeID string, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Joins("JOIN ledger_entries ON ledger_entries.transaction_id = transactions.id").
		Joins("JOIN wallets ON wallets.id = ledger_entries.wallet_id").
		Where("transactions.type = ? AND transactions.status = ?", models.TransactionTypeSpend, models.TransactionStatusSuccess).
		Where("transactions.created_at >= ?", since).
		Where("ledger_entries.entry_type = ?", models.EntryTypeDebit).
		Where("wallets.user_id = ? AND wallets.asset_type_id = ?", userID, assetTypeID).
		Select("COALESCE(SUM(transactions.amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum spend transactions: %w", err)
	}
	return total, nil
}

func (r *ledgerRepository) ExecuteInTransaction(fn func(LedgerRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/models"
	"tally/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal single-threaded LedgerRepository for exercising the
// ledger core in isolation.
type memStore struct {
	transactions map[string]*models.Transaction
	entries      []*models.LedgerEntry

	failEntryAfter int // fail CreateLedgerEntry once this many entries exist
	entryErr       error
	statusErr      error
}

func newMemStore() *memStore {
	return &memStore{transactions: make(map[string]*models.Transaction), failEntryAfter: -1}
}

func (m *memStore) CreateWallet(*models.Wallet) error { return errors.New("not implemented") }

func (m *memStore) GetWalletByID(string) (*models.Wallet, error) {
	return nil, repositories.ErrWalletNotFound
}

func (m *memStore) GetWalletByUserAndAsset(string, string) (*models.Wallet, error) {
	return nil, repositories.ErrWalletNotFound
}

func (m *memStore) LockWallet(string) (*models.Wallet, error) {
	return nil, repositories.ErrWalletNotFound
}

func (m *memStore) GetSystemWalletByAssetType(string) (*models.SystemWallet, error) {
	return nil, repositories.ErrSystemWalletNotFound
}

func (m *memStore) CreateTransaction(txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	txn.CreatedAt = time.Now()
	m.transactions[txn.ID] = txn
	return nil
}

func (m *memStore) GetTransactionByID(id string) (*models.Transaction, error) {
	if txn, ok := m.transactions[id]; ok {
		return txn, nil
	}
	return nil, repositories.ErrTransactionNotFound
}

func (m *memStore) GetTransactionByReference(referenceID string) (*models.Transaction, error) {
	for _, txn := range m.transactions {
		if txn.ReferenceID == referenceID {
			return txn, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (m *memStore) UpdateTransactionStatus(id, status string) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	txn, ok := m.transactions[id]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	txn.Status = status
	return nil
}

func (m *memStore) CreateLedgerEntry(entry *models.LedgerEntry) error {
	if m.failEntryAfter >= 0 && len(m.entries) >= m.failEntryAfter {
		return m.entryErr
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memStore) GetEntriesByTransaction(transactionID string) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.TransactionID == transactionID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) SumWalletEntries(_ context.Context, walletID, entryType string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range m.entries {
		if e.WalletID != nil && *e.WalletID == walletID && e.EntryType == entryType {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (m *memStore) GetWalletPostings(_ context.Context, walletID string, limit, offset int, dest interface{}) error {
	var postings []Posting
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.WalletID == nil || *e.WalletID != walletID {
			continue
		}
		txn := m.transactions[e.TransactionID]
		postings = append(postings, Posting{
			EntryID:         e.ID,
			EntryType:       e.EntryType,
			Amount:          e.Amount,
			CreatedAt:       e.CreatedAt,
			TransactionID:   txn.ID,
			TransactionType: txn.Type,
			Status:          txn.Status,
			Metadata:        txn.Metadata,
		})
	}
	if offset > len(postings) {
		offset = len(postings)
	}
	postings = postings[offset:]
	if limit < len(postings) {
		postings = postings[:limit]
	}
	*dest.(*[]Posting) = postings
	return nil
}

func (m *memStore) SumSpendSince(context.Context, string, string, time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *memStore) ExecuteInTransaction(fn func(repositories.LedgerRepository) error) error {
	return fn(m)
}

func (m *memStore) addEntry(walletID, entryType, amount string) {
	id := uuid.NewString()
	m.entries = append(m.entries, &models.LedgerEntry{
		ID:        id,
		WalletID:  &walletID,
		EntryType: entryType,
		Amount:    decimal.RequireFromString(amount),
		CreatedAt: time.Now(),
	})
}

func TestCalculateBalance(t *testing.T) {
	store := newMemStore()
	store.addEntry("wallet-1", models.EntryTypeCredit, "500")
	store.addEntry("wallet-1", models.EntryTypeCredit, "250.50")
	store.addEntry("wallet-1", models.EntryTypeDebit, "200")
	store.addEntry("wallet-2", models.EntryTypeCredit, "999")

	svc := New(store, 2)

	balance, err := svc.CalculateBalance(context.Background(), "wallet-1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("550.50")))
}

func TestCalculateBalanceEmptyWallet(t *testing.T) {
	svc := New(newMemStore(), 2)

	balance, err := svc.CalculateBalance(context.Background(), "wallet-1")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestCreateTransactionWritesDoubleEntry(t *testing.T) {
	store := newMemStore()
	svc := New(store, 2)

	from := "system-wallet-1"
	to := "wallet-1"
	result, err := svc.CreateTransaction(context.Background(), CreateParams{
		Type:               models.TransactionTypeTopup,
		Amount:             decimal.NewFromInt(100),
		FromSystemWalletID: &from,
		ToWalletID:         &to,
		ReferenceID:        uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, result.Status)

	txn, err := store.GetTransactionByID(result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, txn.Status)

	entries, err := store.GetEntriesByTransaction(result.TransactionID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var debits, credits int
	for _, entry := range entries {
		assert.True(t, entry.Amount.Equal(decimal.NewFromInt(100)))
		switch entry.EntryType {
		case models.EntryTypeDebit:
			debits++
			require.NotNil(t, entry.SystemWalletID)
			assert.Equal(t, from, *entry.SystemWalletID)
		case models.EntryTypeCredit:
			credits++
			require.NotNil(t, entry.WalletID)
			assert.Equal(t, to, *entry.WalletID)
		}
	}
	assert.Equal(t, 1, debits)
	assert.Equal(t, 1, credits)

	ok, err := svc.VerifyTransactionInvariants(context.Background(), result.TransactionID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateTransactionRejectsNonPositiveAmount(t *testing.T) {
	svc := New(newMemStore(), 2)

	for _, amount := range []string{"0", "-1"} {
		_, err := svc.CreateTransaction(context.Background(), CreateParams{
			Type:        models.TransactionTypeTopup,
			Amount:      decimal.RequireFromString(amount),
			ReferenceID: uuid.NewString(),
		})

		var invalidErr *InvalidAmountError
		assert.ErrorAs(t, err, &invalidErr, "amount %s", amount)
	}
}

func TestCreateTransactionWrapsEntryFailure(t *testing.T) {
	store := newMemStore()
	cause := errors.New("disk full")
	store.failEntryAfter = 1 // debit lands, credit fails
	store.entryErr = cause

	svc := New(store, 2)

	to := "wallet-1"
	from := "system-wallet-1"
	_, err := svc.CreateTransaction(context.Background(), CreateParams{
		Type:               models.TransactionTypeTopup,
		Amount:             decimal.NewFromInt(100),
		FromSystemWalletID: &from,
		ToWalletID:         &to,
		ReferenceID:        uuid.NewString(),
	})

	var failedErr *TransactionFailedError
	require.ErrorAs(t, err, &failedErr)
	assert.ErrorIs(t, err, cause)
}

func TestVerifyTransactionInvariantsDetectsImbalance(t *testing.T) {
	store := newMemStore()
	svc := New(store, 2)

	txnID := uuid.NewString()
	wallet := "wallet-1"
	store.entries = append(store.entries,
		&models.LedgerEntry{ID: uuid.NewString(), TransactionID: txnID, WalletID: &wallet, EntryType: models.EntryTypeCredit, Amount: decimal.RequireFromString("10.00")},
		&models.LedgerEntry{ID: uuid.NewString(), TransactionID: txnID, WalletID: &wallet, EntryType: models.EntryTypeDebit, Amount: decimal.RequireFromString("10.02")},
	)

	ok, err := svc.VerifyTransactionInvariants(context.Background(), txnID)
	require.NoError(t, err)
	assert.False(t, ok, "0.02 drift exceeds the tolerance at 2 decimal places")
}

func TestVerifyTransactionInvariantsToleratesSubUnitDrift(t *testing.T) {
	store := newMemStore()
	svc := New(store, 2)

	txnID := uuid.NewString()
	wallet := "wallet-1"
	store.entries = append(store.entries,
		&models.LedgerEntry{ID: uuid.NewString(), TransactionID: txnID, WalletID: &wallet, EntryType: models.EntryTypeCredit, Amount: decimal.RequireFromString("10.000")},
		&models.LedgerEntry{ID: uuid.NewString(), TransactionID: txnID, WalletID: &wallet, EntryType: models.EntryTypeDebit, Amount: decimal.RequireFromString("10.009")},
	)

	ok, err := svc.VerifyTransactionInvariants(context.Background(), txnID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetWalletTransactionsNewestFirst(t *testing.T) {
	store := newMemStore()
	svc := New(store, 2)

	wallet := "wallet-1"
	system := "system-wallet-1"
	for _, amount := range []int64{100, 200, 300} {
		_, err := svc.CreateTransaction(context.Background(), CreateParams{
			Type:               models.TransactionTypeTopup,
			Amount:             decimal.NewFromInt(amount),
			FromSystemWalletID: &system,
			ToWalletID:         &wallet,
			ReferenceID:        uuid.NewString(),
		})
		require.NoError(t, err)
	}

	postings, err := svc.GetWalletTransactions(context.Background(), wallet, 2, 0)
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.True(t, postings[0].Amount.Equal(decimal.NewFromInt(300)))
	assert.True(t, postings[1].Amount.Equal(decimal.NewFromInt(200)))

	rest, err := svc.GetWalletTransactions(context.Background(), wallet, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.True(t, rest[0].Amount.Equal(decimal.NewFromInt(100)))
}

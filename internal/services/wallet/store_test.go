package wallet

import (
	"context"
	"sync"
	"time"

	"tally/internal/models"
	"tally/internal/repositories"
	"tally/internal/services/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory LedgerRepository. It emulates the storage
// engine's semantics the orchestrator relies on: per-wallet exclusive locks
// held until the end of the atomic scope, and all-or-nothing commits.
type fakeStore struct {
	mu           sync.Mutex
	wallets      map[string]*models.Wallet
	systems      map[string]*models.SystemWallet // by asset type id
	transactions map[string]*models.Transaction  // by transaction id
	byReference  map[string]*models.Transaction
	entries      []*models.LedgerEntry

	rowLocks map[string]*sync.Mutex

	// failure injection
	lockFailures  int
	lockFailureMu sync.Mutex
	lockErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		wallets:      make(map[string]*models.Wallet),
		systems:      make(map[string]*models.SystemWallet),
		transactions: make(map[string]*models.Transaction),
		byReference:  make(map[string]*models.Transaction),
		rowLocks:     make(map[string]*sync.Mutex),
	}
}

func (s *fakeStore) addWallet(userID, assetTypeID string) *models.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &models.Wallet{ID: uuid.NewString(), UserID: userID, AssetTypeID: assetTypeID}
	s.wallets[w.ID] = w
	s.rowLocks[w.ID] = &sync.Mutex{}
	return w
}

func (s *fakeStore) addSystemWallet(assetTypeID string) *models.SystemWallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &models.SystemWallet{ID: uuid.NewString(), AssetTypeID: assetTypeID, Name: "Treasury"}
	s.systems[assetTypeID] = w
	return w
}

// fund credits the wallet directly, bypassing the orchestrator.
func (s *fakeStore) fund(walletID string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn := &models.Transaction{
		ID:          uuid.NewString(),
		Type:        models.TransactionTypeTopup,
		Amount:      amount,
		ReferenceID: uuid.NewString(),
		Status:      models.TransactionStatusSuccess,
		CreatedAt:   time.Now(),
	}
	s.transactions[txn.ID] = txn
	s.byReference[txn.ReferenceID] = txn
	s.entries = append(s.entries, &models.LedgerEntry{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		WalletID:      &walletID,
		EntryType:     models.EntryTypeCredit,
		Amount:        amount,
		CreatedAt:     time.Now(),
	})
}

// recordSpend seeds a committed SPEND debit with an explicit timestamp, for
// limit-window tests.
func (s *fakeStore) recordSpend(walletID string, amount decimal.Decimal, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn := &models.Transaction{
		ID:          uuid.NewString(),
		Type:        models.TransactionTypeSpend,
		Amount:      amount,
		ReferenceID: uuid.NewString(),
		Status:      models.TransactionStatusSuccess,
		CreatedAt:   at,
	}
	s.transactions[txn.ID] = txn
	s.byReference[txn.ReferenceID] = txn
	s.entries = append(s.entries, &models.LedgerEntry{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		WalletID:      &walletID,
		EntryType:     models.EntryTypeDebit,
		Amount:        amount,
		CreatedAt:     at,
	})
}

func (s *fakeStore) failNextLocks(n int, err error) {
	s.lockFailureMu.Lock()
	defer s.lockFailureMu.Unlock()
	s.lockFailures = n
	s.lockErr = err
}

func (s *fakeStore) takeLockFailure() error {
	s.lockFailureMu.Lock()
	defer s.lockFailureMu.Unlock()
	if s.lockFailures > 0 {
		s.lockFailures--
		return s.lockErr
	}
	return nil
}

// LedgerRepository on committed state.

func (s *fakeStore) CreateWallet(wallet *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.UserID == wallet.UserID && w.AssetTypeID == wallet.AssetTypeID {
			return repositories.ErrDuplicateWallet
		}
	}
	if wallet.ID == "" {
		wallet.ID = uuid.NewString()
	}
	s.wallets[wallet.ID] = wallet
	s.rowLocks[wallet.ID] = &sync.Mutex{}
	return nil
}

func (s *fakeStore) GetWalletByID(id string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[id]; ok {
		return w, nil
	}
	return nil, repositories.ErrWalletNotFound
}

func (s *fakeStore) GetWalletByUserAndAsset(userID, assetTypeID string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.UserID == userID && w.AssetTypeID == assetTypeID {
			return w, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (s *fakeStore) LockWallet(walletID string) (*models.Wallet, error) {
	// Locking outside an atomic scope is a protocol violation in production
	// code; the fake just returns the row.
	return s.GetWalletByID(walletID)
}

func (s *fakeStore) GetSystemWalletByAssetType(assetTypeID string) (*models.SystemWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.systems[assetTypeID]; ok {
		return w, nil
	}
	return nil, repositories.ErrSystemWalletNotFound
}

func (s *fakeStore) CreateTransaction(txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTransactionLocked(txn)
}

func (s *fakeStore) createTransactionLocked(txn *models.Transaction) error {
	if _, ok := s.byReference[txn.ReferenceID]; ok {
		return repositories.ErrDuplicateReference
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	s.transactions[txn.ID] = txn
	s.byReference[txn.ReferenceID] = txn
	return nil
}

func (s *fakeStore) GetTransactionByID(id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn, ok := s.transactions[id]; ok {
		return txn, nil
	}
	return nil, repositories.ErrTransactionNotFound
}

func (s *fakeStore) GetTransactionByReference(referenceID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn, ok := s.byReference[referenceID]; ok {
		return txn, nil
	}
	return nil, repositories.ErrTransactionNotFound
}

func (s *fakeStore) UpdateTransactionStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn, ok := s.transactions[id]; ok {
		txn.Status = status
		return nil
	}
	return repositories.ErrTransactionNotFound
}

func (s *fakeStore) CreateLedgerEntry(entry *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) GetEntriesByTransaction(transactionID string) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if e.TransactionID == transactionID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) SumWalletEntries(ctx context.Context, walletID, entryType string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sumEntries(s.entries, walletID, entryType), nil
}

func (s *fakeStore) GetWalletPostings(ctx context.Context, walletID string, limit, offset int, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var postings []ledger.Posting
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.WalletID == nil || *e.WalletID != walletID {
			continue
		}
		txn := s.transactions[e.TransactionID]
		postings = append(postings, ledger.Posting{
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
	*dest.(*[]ledger.Posting) = postings
	return nil
}

func (s *fakeStore) SumSpendSince(ctx context.Context, userID, assetTypeID string, since time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, e := range s.entries {
		if e.WalletID == nil || e.EntryType != models.EntryTypeDebit {
			continue
		}
		w, ok := s.wallets[*e.WalletID]
		if !ok || w.UserID != userID || w.AssetTypeID != assetTypeID {
			continue
		}
		txn := s.transactions[e.TransactionID]
		if txn.Type != models.TransactionTypeSpend || txn.Status != models.TransactionStatusSuccess {
			continue
		}
		if txn.CreatedAt.Before(since) {
			continue
		}
		total = total.Add(txn.Amount)
	}
	return total, nil
}

func (s *fakeStore) ExecuteInTransaction(fn func(repositories.LedgerRepository) error) error {
	tx := &fakeTx{store: s, statusUpdates: make(map[string]string)}
	err := fn(tx)
	if err == nil {
		err = tx.commit()
	}
	tx.releaseLocks()
	return err
}

// fakeTx is one atomic scope. Writes buffer locally and apply on commit;
// reads see committed state plus the local buffer. Row locks acquired through
// LockWallet are held until the scope ends.
type fakeTx struct {
	store         *fakeStore
	transactions  []*models.Transaction
	entries       []*models.LedgerEntry
	statusUpdates map[string]string
	held          []*sync.Mutex
}

func (t *fakeTx) commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, txn := range t.transactions {
		if err := t.store.createTransactionLocked(txn); err != nil {
			return err
		}
	}
	t.store.entries = append(t.store.entries, t.entries...)
	for id, status := range t.statusUpdates {
		if txn, ok := t.store.transactions[id]; ok {
			txn.Status = status
		}
	}
	return nil
}

func (t *fakeTx) releaseLocks() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

func (t *fakeTx) CreateWallet(wallet *models.Wallet) error { return t.store.CreateWallet(wallet) }

func (t *fakeTx) GetWalletByID(id string) (*models.Wallet, error) { return t.store.GetWalletByID(id) }

func (t *fakeTx) GetWalletByUserAndAsset(userID, assetTypeID string) (*models.Wallet, error) {
	return t.store.GetWalletByUserAndAsset(userID, assetTypeID)
}

func (t *fakeTx) LockWallet(walletID string) (*models.Wallet, error) {
	if err := t.store.takeLockFailure(); err != nil {
		return nil, err
	}

	t.store.mu.Lock()
	lock, ok := t.store.rowLocks[walletID]
	t.store.mu.Unlock()
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}

	lock.Lock()
	t.held = append(t.held, lock)
	return t.store.GetWalletByID(walletID)
}

func (t *fakeTx) GetSystemWalletByAssetType(assetTypeID string) (*models.SystemWallet, error) {
	return t.store.GetSystemWalletByAssetType(assetTypeID)
}

func (t *fakeTx) CreateTransaction(txn *models.Transaction) error {
	if _, err := t.GetTransactionByReference(txn.ReferenceID); err == nil {
		return repositories.ErrDuplicateReference
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	t.transactions = append(t.transactions, txn)
	return nil
}

func (t *fakeTx) GetTransactionByID(id string) (*models.Transaction, error) {
	for _, txn := range t.transactions {
		if txn.ID == id {
			return txn, nil
		}
	}
	return t.store.GetTransactionByID(id)
}

func (t *fakeTx) GetTransactionByReference(referenceID string) (*models.Transaction, error) {
	for _, txn := range t.transactions {
		if txn.ReferenceID == referenceID {
			return txn, nil
		}
	}
	return t.store.GetTransactionByReference(referenceID)
}

func (t *fakeTx) UpdateTransactionStatus(id, status string) error {
	for _, txn := range t.transactions {
		if txn.ID == id {
			txn.Status = status
			return nil
		}
	}
	t.statusUpdates[id] = status
	return nil
}

func (t *fakeTx) CreateLedgerEntry(entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	t.entries = append(t.entries, entry)
	return nil
}

func (t *fakeTx) GetEntriesByTransaction(transactionID string) ([]models.LedgerEntry, error) {
	out, _ := t.store.GetEntriesByTransaction(transactionID)
	for _, e := range t.entries {
		if e.TransactionID == transactionID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (t *fakeTx) SumWalletEntries(ctx context.Context, walletID, entryType string) (decimal.Decimal, error) {
	committed, err := t.store.SumWalletEntries(ctx, walletID, entryType)
	if err != nil {
		return decimal.Zero, err
	}
	return committed.Add(sumEntries(t.entries, walletID, entryType)), nil
}

func (t *fakeTx) GetWalletPostings(ctx context.Context, walletID string, limit, offset int, dest interface{}) error {
	return t.store.GetWalletPostings(ctx, walletID, limit, offset, dest)
}

func (t *fakeTx) SumSpendSince(ctx context.Context, userID, assetTypeID string, since time.Time) (decimal.Decimal, error) {
	return t.store.SumSpendSince(ctx, userID, assetTypeID, since)
}

func (t *fakeTx) ExecuteInTransaction(fn func(repositories.LedgerRepository) error) error {
	// Nested scopes join the current one.
	return fn(t)
}

func sumEntries(entries []*models.LedgerEntry, walletID, entryType string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.WalletID != nil && *e.WalletID == walletID && e.EntryType == entryType {
			total = total.Add(e.Amount)
		}
	}
	return total
}

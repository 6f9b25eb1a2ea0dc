package ledger

import (
	"context"
	"fmt"

	"tally/internal/models"
	"tally/internal/repositories"

	"github.com/shopspring/decimal"
)

// Service is the ledger core: balance computation, double-entry transaction
// creation and invariant verification. It persists through whatever store it
// is constructed with and owns no transaction boundary of its own; callers
// needing atomicity construct it over a transaction-scoped repository.
type Service interface {
	CalculateBalance(ctx context.Context, walletID string) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, params CreateParams) (*Result, error)
	VerifyTransactionInvariants(ctx context.Context, transactionID string) (bool, error)
	GetWalletTransactions(ctx context.Context, walletID string, limit, offset int) ([]Posting, error)
}

type service struct {
	store   repositories.LedgerRepository
	epsilon decimal.Decimal
}

// New creates a ledger service over the given store. maxDecimalPlaces sets
// the tolerance used by invariant verification: one unit in the last
// configured decimal place.
func New(store repositories.LedgerRepository, maxDecimalPlaces int) Service {
	if store == nil {
		panic("store is required")
	}
	return &service{
		store:   store,
		epsilon: decimal.New(1, -int32(maxDecimalPlaces)),
	}
}

// CalculateBalance sums entries for the wallet: credits minus debits. It
// takes no lock by itself; callers needing a consistent snapshot run it
// inside the same atomic scope as the wallet lock.
func (s *service) CalculateBalance(ctx context.Context, walletID string) (decimal.Decimal, error) {
	credits, err := s.store.SumWalletEntries(ctx, walletID, models.EntryTypeCredit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to calculate balance: %w", err)
	}
	debits, err := s.store.SumWalletEntries(ctx, walletID, models.EntryTypeDebit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to calculate balance: %w", err)
	}
	return credits.Sub(debits), nil
}

// CreateTransaction writes the transaction row as PENDING, posts the DEBIT
// entry against the source and the CREDIT entry against the destination,
// then flips the status to SUCCESS. Any failure leaves the enclosing scope
// to roll back everything; no partially-applied state survives.
func (s *service) CreateTransaction(ctx context.Context, params CreateParams) (*Result, error) {
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &InvalidAmountError{Amount: params.Amount}
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = models.JSON{}
	}

	txn := &models.Transaction{
		Type:        params.Type,
		Amount:      params.Amount,
		ReferenceID: params.ReferenceID,
		Status:      models.TransactionStatusPending,
		Metadata:    metadata,
	}
	if err := s.store.CreateTransaction(txn); err != nil {
		return nil, &TransactionFailedError{Message: "failed to create transaction", Cause: err}
	}

	debit := &models.LedgerEntry{
		TransactionID:  txn.ID,
		WalletID:       params.FromWalletID,
		SystemWalletID: params.FromSystemWalletID,
		EntryType:      models.EntryTypeDebit,
		Amount:         params.Amount,
	}
	if err := s.store.CreateLedgerEntry(debit); err != nil {
		return nil, &TransactionFailedError{Message: "failed to create debit entry", Cause: err}
	}

	credit := &models.LedgerEntry{
		TransactionID:  txn.ID,
		WalletID:       params.ToWalletID,
		SystemWalletID: params.ToSystemWalletID,
		EntryType:      models.EntryTypeCredit,
		Amount:         params.Amount,
	}
	if err := s.store.CreateLedgerEntry(credit); err != nil {
		return nil, &TransactionFailedError{Message: "failed to create credit entry", Cause: err}
	}

	if err := s.store.UpdateTransactionStatus(txn.ID, models.TransactionStatusSuccess); err != nil {
		return nil, &TransactionFailedError{Message: "failed to finalize transaction", Cause: err}
	}

	return &Result{TransactionID: txn.ID, Status: models.TransactionStatusSuccess}, nil
}

// VerifyTransactionInvariants independently recomputes whether credits equal
// debits for the transaction, tolerant of rounding up to one unit in the
// last configured decimal place. Used by audits and tests, not the hot path.
func (s *service) VerifyTransactionInvariants(ctx context.Context, transactionID string) (bool, error) {
	entries, err := s.store.GetEntriesByTransaction(transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to verify transaction: %w", err)
	}

	credits := decimal.Zero
	debits := decimal.Zero
	for _, entry := range entries {
		switch entry.EntryType {
		case models.EntryTypeCredit:
			credits = credits.Add(entry.Amount)
		case models.EntryTypeDebit:
			debits = debits.Add(entry.Amount)
		}
	}

	return credits.Sub(debits).Abs().LessThan(s.epsilon), nil
}

// GetWalletTransactions returns the wallet's postings newest-first, each
// joined with its parent transaction.
func (s *service) GetWalletTransactions(ctx context.Context, walletID string, limit, offset int) ([]Posting, error) {
	var postings []Posting
	if err := s.store.GetWalletPostings(ctx, walletID, limit, offset, &postings); err != nil {
		return nil, fmt.Errorf("failed to get wallet transactions: %w", err)
	}
	return postings, nil
}

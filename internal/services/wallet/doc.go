/*
Package wallet implements the operation orchestrator for the credit ledger.

It composes amount validation, limit enforcement, retry-on-transient-error
and the double-entry ledger core into the three user-facing flows:

  - TopUp: system wallet → user wallet
  - Bonus: system wallet → user wallet (no limit check)
  - Spend: user wallet → system wallet (balance precondition under lock)

Every flow runs the same protocol: validate the amount, consult the limit
enforcer, then execute the atomic section under retry. The atomic section
opens one storage transaction, rejects replayed reference ids, resolves the
user and system wallets, takes an exclusive row lock on the user wallet, and
asks the ledger core to post the paired DEBIT/CREDIT entries. Concurrent
operations against the same wallet serialize on the row lock; operations on
different wallets proceed in parallel.

Usage:

	svc := wallet.NewService(repo, cache, wallet.Config{
	    Limits:     cfg.TransactionLimits,
	    Validation: cfg.Validation,
	    Retry:      cfg.Retry,
	}, collector, logger)

	result, err := svc.Spend(ctx, wallet.OperationParams{
	    UserID:      userID,
	    AssetTypeID: assetTypeID,
	    Amount:      decimal.NewFromInt(150),
	    ReferenceID: referenceID,
	})

Failures are typed: *ledger.InvalidAmountError, *LimitExceededError,
*WalletNotFoundError, *SystemWalletNotFoundError, *InsufficientBalanceError,
*DuplicateTransactionError and *ledger.TransactionFailedError. Callers switch
on them with errors.As.
*/
package wallet

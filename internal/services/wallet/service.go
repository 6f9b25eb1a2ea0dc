package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tally/internal/models"
	"tally/internal/repositories"
	"tally/internal/retry"
	"tally/internal/services/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service exposes the three user-facing flows plus the read-only queries and
// wallet provisioning.
type Service interface {
	TopUp(ctx context.Context, params OperationParams) (*OperationResult, error)
	Bonus(ctx context.Context, params OperationParams) (*OperationResult, error)
	Spend(ctx context.Context, params OperationParams) (*OperationResult, error)

	GetBalance(ctx context.Context, userID, assetTypeID string) (*BalanceResult, error)
	GetTransactions(ctx context.Context, userID, assetTypeID string, limit, offset int) ([]ledger.Posting, error)

	EnsureWallet(ctx context.Context, userID, assetTypeID string) (*models.Wallet, error)
}

// BalanceResult reports a wallet's derived balance.
type BalanceResult struct {
	WalletID string          `json:"walletId"`
	Balance  decimal.Decimal `json:"balance"`
}

type service struct {
	repo    repositories.LedgerRepository
	cache   repositories.CacheRepository
	ledger  ledger.Service
	limits  *LimitEnforcer
	retrier *retry.Retrier
	config  Config
	metrics MetricsCollector
	logger  *zap.Logger
}

// NewService creates the operation orchestrator.
func NewService(
	repo repositories.LedgerRepository,
	cache repositories.CacheRepository,
	cfg Config,
	metrics MetricsCollector,
	logger *zap.Logger,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cfg.Validation.MaxDecimalPlaces == 0 {
		cfg.Validation.MaxDecimalPlaces = 2
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{
		repo:   repo,
		cache:  cache,
		ledger: ledger.New(repo, cfg.Validation.MaxDecimalPlaces),
		limits: NewLimitEnforcer(repo, cfg.Limits),
		retrier: retry.New(retry.Config{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
		}, logger),
		config:  cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// TopUp moves credits from the system wallet to the user wallet.
func (s *service) TopUp(ctx context.Context, params OperationParams) (*OperationResult, error) {
	return s.execute(ctx, models.TransactionTypeTopup, params)
}

// Bonus issues free credits from the system wallet to the user wallet. Bonus
// grants are system-initiated and bypass the limit enforcer.
func (s *service) Bonus(ctx context.Context, params OperationParams) (*OperationResult, error) {
	return s.execute(ctx, models.TransactionTypeBonus, params)
}

// Spend moves credits from the user wallet to the system wallet, subject to
// the balance precondition checked under lock.
func (s *service) Spend(ctx context.Context, params OperationParams) (*OperationResult, error) {
	return s.execute(ctx, models.TransactionTypeSpend, params)
}

// execute runs the shared protocol: validate, check limits, then retry the
// atomic section (duplicate guard, wallet resolution, lock, balance check,
// double entry, fresh balance) as one unit. Each retry attempt re-runs the
// whole atomic section in a fresh scope, so a failed attempt leaves no
// partial state and the duplicate guard stays correct across attempts.
func (s *service) execute(ctx context.Context, txType string, params OperationParams) (result *OperationResult, err error) {
	operation := operationName(txType)
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordOperation(operation, status, time.Since(start), params.Amount, errorKind(err))
	}()

	if err = ValidateAmount(params.Amount, s.config.Validation.MaxDecimalPlaces); err != nil {
		return nil, err
	}

	if txType != models.TransactionTypeBonus {
		if err = s.limits.CheckLimits(ctx, params.UserID, params.AssetTypeID, params.Amount, operation); err != nil {
			return nil, err
		}
	}

	var walletUserID string
	err = s.retrier.Do(ctx, func() error {
		return s.repo.ExecuteInTransaction(func(txRepo repositories.LedgerRepository) error {
			res, txErr := s.executeInScope(ctx, txRepo, txType, params)
			if txErr != nil {
				return txErr
			}
			result = res
			walletUserID = params.UserID
			return nil
		})
	})
	if err != nil {
		return nil, s.wrapStorageError(operation, err)
	}

	s.invalidateWalletCaches(ctx, walletUserID, params.AssetTypeID)
	return result, nil
}

// executeInScope is the body of the atomic section. The scoped repository it
// receives rolls everything back if it returns an error.
func (s *service) executeInScope(ctx context.Context, txRepo repositories.LedgerRepository, txType string, params OperationParams) (*OperationResult, error) {
	// Ledger-level replay guard, independent of the API idempotency key.
	if _, err := txRepo.GetTransactionByReference(params.ReferenceID); err == nil {
		return nil, &DuplicateTransactionError{ReferenceID: params.ReferenceID}
	} else if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return nil, err
	}

	userWallet, err := txRepo.GetWalletByUserAndAsset(params.UserID, params.AssetTypeID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, &WalletNotFoundError{UserID: params.UserID, AssetTypeID: params.AssetTypeID}
		}
		return nil, err
	}

	systemWallet, err := txRepo.GetSystemWalletByAssetType(params.AssetTypeID)
	if err != nil {
		if errors.Is(err, repositories.ErrSystemWalletNotFound) {
			return nil, &SystemWalletNotFoundError{AssetTypeID: params.AssetTypeID}
		}
		return nil, err
	}

	// Serialize all operations against this wallet for the rest of the
	// scope. The balance check and the entry writes become atomic as a unit.
	if _, err := txRepo.LockWallet(userWallet.ID); err != nil {
		return nil, err
	}

	scopedLedger := ledger.New(txRepo, s.config.Validation.MaxDecimalPlaces)

	if txType == models.TransactionTypeSpend {
		balance, err := scopedLedger.CalculateBalance(ctx, userWallet.ID)
		if err != nil {
			return nil, err
		}
		if balance.LessThan(params.Amount) {
			return nil, &InsufficientBalanceError{
				WalletID:  userWallet.ID,
				Requested: params.Amount,
				Available: balance,
			}
		}
	}

	createParams := ledger.CreateParams{
		Type:        txType,
		Amount:      params.Amount,
		ReferenceID: params.ReferenceID,
		Metadata:    s.buildMetadata(params, operationName(txType)),
	}
	if txType == models.TransactionTypeSpend {
		createParams.FromWalletID = &userWallet.ID
		createParams.ToSystemWalletID = &systemWallet.ID
	} else {
		createParams.FromSystemWalletID = &systemWallet.ID
		createParams.ToWalletID = &userWallet.ID
	}

	res, err := scopedLedger.CreateTransaction(ctx, createParams)
	if err != nil {
		return nil, err
	}

	newBalance, err := scopedLedger.CalculateBalance(ctx, userWallet.ID)
	if err != nil {
		return nil, err
	}

	return &OperationResult{
		Success:       true,
		TransactionID: res.TransactionID,
		NewBalance:    newBalance,
		Message:       successMessage(txType, params.Amount),
	}, nil
}

// GetBalance resolves the wallet and returns its derived balance, serving
// from cache when possible.
func (s *service) GetBalance(ctx context.Context, userID, assetTypeID string) (*BalanceResult, error) {
	userWallet, err := s.repo.GetWalletByUserAndAsset(userID, assetTypeID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, &WalletNotFoundError{UserID: userID, AssetTypeID: assetTypeID}
		}
		return nil, err
	}

	cacheKey := balanceCacheKey(userWallet.ID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			if balance, perr := decimal.NewFromString(cached); perr == nil {
				return &BalanceResult{WalletID: userWallet.ID, Balance: balance}, nil
			}
		}
	}

	balance, err := s.ledger.CalculateBalance(ctx, userWallet.ID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, balance.String(), balanceCacheTTL); err != nil {
			s.logger.Warn("failed to cache balance", zap.String("wallet_id", userWallet.ID), zap.Error(err))
		}
	}

	return &BalanceResult{WalletID: userWallet.ID, Balance: balance}, nil
}

// GetTransactions returns the wallet's postings newest-first. The page size
// is clamped to [1, MaxPageSize].
func (s *service) GetTransactions(ctx context.Context, userID, assetTypeID string, limit, offset int) ([]ledger.Posting, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	userWallet, err := s.repo.GetWalletByUserAndAsset(userID, assetTypeID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, &WalletNotFoundError{UserID: userID, AssetTypeID: assetTypeID}
		}
		return nil, err
	}

	return s.ledger.GetWalletTransactions(ctx, userWallet.ID, limit, offset)
}

// EnsureWallet returns the wallet for (userID, assetTypeID), creating it on
// demand. A concurrent create losing the unique-index race falls back to the
// winner's row.
func (s *service) EnsureWallet(ctx context.Context, userID, assetTypeID string) (*models.Wallet, error) {
	userWallet, err := s.repo.GetWalletByUserAndAsset(userID, assetTypeID)
	if err == nil {
		return userWallet, nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return nil, err
	}

	userWallet = &models.Wallet{UserID: userID, AssetTypeID: assetTypeID}
	if err := s.repo.CreateWallet(userWallet); err != nil {
		if errors.Is(err, repositories.ErrDuplicateWallet) {
			return s.repo.GetWalletByUserAndAsset(userID, assetTypeID)
		}
		return nil, err
	}
	return userWallet, nil
}

// wrapStorageError converts leftover storage failures into
// TransactionFailedError while passing typed domain failures through.
func (s *service) wrapStorageError(operation string, err error) error {
	var (
		walletNotFound    *WalletNotFoundError
		sysWalletNotFound *SystemWalletNotFoundError
		insufficient      *InsufficientBalanceError
		duplicate         *DuplicateTransactionError
		limitExceeded     *LimitExceededError
		invalidAmount     *ledger.InvalidAmountError
		txFailed          *ledger.TransactionFailedError
	)
	switch {
	case errors.As(err, &walletNotFound),
		errors.As(err, &sysWalletNotFound),
		errors.As(err, &insufficient),
		errors.As(err, &duplicate),
		errors.As(err, &limitExceeded),
		errors.As(err, &invalidAmount),
		errors.As(err, &txFailed):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		s.logger.Error("operation failed", zap.String("operation", operation), zap.Error(err))
		return &ledger.TransactionFailedError{Message: fmt.Sprintf("%s failed", operation), Cause: err}
	}
}

func (s *service) buildMetadata(params OperationParams, operation string) models.JSON {
	metadata := models.NewJSON(params.Metadata)
	metadata["userId"] = params.UserID
	metadata["assetTypeId"] = params.AssetTypeID
	metadata["operation"] = operation
	return metadata
}

func (s *service) invalidateWalletCaches(ctx context.Context, userID, assetTypeID string) {
	if s.cache == nil {
		return
	}
	userWallet, err := s.repo.GetWalletByUserAndAsset(userID, assetTypeID)
	if err != nil {
		return
	}
	if err := s.cache.Delete(ctx, balanceCacheKey(userWallet.ID), historyCacheKey(userWallet.ID)); err != nil {
		s.logger.Warn("failed to invalidate wallet caches", zap.String("wallet_id", userWallet.ID), zap.Error(err))
	}
}

func operationName(txType string) string {
	switch txType {
	case models.TransactionTypeTopup:
		return "topup"
	case models.TransactionTypeBonus:
		return "bonus"
	case models.TransactionTypeSpend:
		return "spend"
	default:
		return "unknown"
	}
}

func successMessage(txType string, amount decimal.Decimal) string {
	switch txType {
	case models.TransactionTypeTopup:
		return fmt.Sprintf("Successfully topped up %s credits", amount)
	case models.TransactionTypeBonus:
		return fmt.Sprintf("Successfully added %s bonus credits", amount)
	default:
		return fmt.Sprintf("Successfully spent %s credits", amount)
	}
}

func errorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		walletNotFound    *WalletNotFoundError
		sysWalletNotFound *SystemWalletNotFoundError
		insufficient      *InsufficientBalanceError
		duplicate         *DuplicateTransactionError
		limitExceeded     *LimitExceededError
		invalidAmount     *ledger.InvalidAmountError
	)
	switch {
	case errors.As(err, &invalidAmount):
		return "invalid_amount"
	case errors.As(err, &walletNotFound):
		return "wallet_not_found"
	case errors.As(err, &sysWalletNotFound):
		return "system_wallet_not_found"
	case errors.As(err, &insufficient):
		return "insufficient_balance"
	case errors.As(err, &duplicate):
		return "duplicate_transaction"
	case errors.As(err, &limitExceeded):
		return "limit_exceeded"
	default:
		return "transaction_failed"
	}
}

package handlers

import (
	"errors"

	"tally/internal/services/ledger"
	"tally/internal/services/wallet"
	"tally/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

type operationRequest struct {
	UserID      string                 `json:"userId"`
	AssetTypeID string                 `json:"assetTypeId"`
	Amount      decimal.Decimal        `json:"amount"`
	ReferenceID string                 `json:"referenceId"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func (r *operationRequest) toParams() wallet.OperationParams {
	referenceID := r.ReferenceID
	if referenceID == "" {
		referenceID = uuid.NewString()
	}
	return wallet.OperationParams{
		UserID:      r.UserID,
		AssetTypeID: r.AssetTypeID,
		Amount:      r.Amount,
		ReferenceID: referenceID,
		Metadata:    r.Metadata,
	}
}

func parseOperationRequest(c *fiber.Ctx) (*operationRequest, error) {
	var input operationRequest
	if err := c.BodyParser(&input); err != nil {
		return nil, utils.BadRequest(c, "Invalid request format")
	}
	if input.UserID == "" || input.AssetTypeID == "" {
		return nil, utils.BadRequest(c, "userId and assetTypeId are required")
	}
	return &input, nil
}

func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	input, err := parseOperationRequest(c)
	if input == nil {
		return err
	}
	result, err := h.walletService.TopUp(c.Context(), input.toParams())
	if err != nil {
		return handleOperationError(c, err)
	}
	return utils.Success(c, result)
}

func (h *WalletHandler) Bonus(c *fiber.Ctx) error {
	input, err := parseOperationRequest(c)
	if input == nil {
		return err
	}
	result, err := h.walletService.Bonus(c.Context(), input.toParams())
	if err != nil {
		return handleOperationError(c, err)
	}
	return utils.Success(c, result)
}

func (h *WalletHandler) Spend(c *fiber.Ctx) error {
	input, err := parseOperationRequest(c)
	if input == nil {
		return err
	}
	result, err := h.walletService.Spend(c.Context(), input.toParams())
	if err != nil {
		return handleOperationError(c, err)
	}
	return utils.Success(c, result)
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	userID := c.Query("userId")
	assetTypeID := c.Query("assetTypeId")
	if userID == "" || assetTypeID == "" {
		return utils.BadRequest(c, "userId and assetTypeId are required")
	}

	result, err := h.walletService.GetBalance(c.Context(), userID, assetTypeID)
	if err != nil {
		return handleOperationError(c, err)
	}
	return utils.Success(c, result)
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	userID := c.Query("userId")
	assetTypeID := c.Query("assetTypeId")
	if userID == "" || assetTypeID == "" {
		return utils.BadRequest(c, "userId and assetTypeId are required")
	}

	limit := c.QueryInt("limit", wallet.DefaultPageSize)
	offset := c.QueryInt("offset", 0)

	postings, err := h.walletService.GetTransactions(c.Context(), userID, assetTypeID, limit, offset)
	if err != nil {
		return handleOperationError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"transactions": postings,
		"limit":        limit,
		"offset":       offset,
	})
}

func (h *WalletHandler) ProvisionWallet(c *fiber.Ctx) error {
	var input struct {
		UserID      string `json:"userId"`
		AssetTypeID string `json:"assetTypeId"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.UserID == "" || input.AssetTypeID == "" {
		return utils.BadRequest(c, "userId and assetTypeId are required")
	}

	userWallet, err := h.walletService.EnsureWallet(c.Context(), input.UserID, input.AssetTypeID)
	if err != nil {
		return handleOperationError(c, err)
	}
	return utils.Success(c, fiber.Map{"wallet": userWallet})
}

// handleOperationError maps typed service failures onto HTTP statuses.
func handleOperationError(c *fiber.Ctx, err error) error {
	var (
		invalidAmount     *ledger.InvalidAmountError
		walletNotFound    *wallet.WalletNotFoundError
		sysWalletNotFound *wallet.SystemWalletNotFoundError
		insufficient      *wallet.InsufficientBalanceError
		duplicate         *wallet.DuplicateTransactionError
		limitExceeded     *wallet.LimitExceededError
	)
	switch {
	case errors.As(err, &invalidAmount):
		return utils.BadRequest(c, err.Error())
	case errors.As(err, &walletNotFound):
		return utils.NotFound(c, err.Error())
	case errors.As(err, &insufficient):
		return utils.UnprocessableEntity(c, err.Error())
	case errors.As(err, &limitExceeded):
		return utils.UnprocessableEntity(c, err.Error())
	case errors.As(err, &duplicate):
		return utils.Conflict(c, err.Error())
	case errors.As(err, &sysWalletNotFound):
		return utils.InternalError(c, err.Error())
	default:
		return utils.InternalError(c, "transaction failed")
	}
}

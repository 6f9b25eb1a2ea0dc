package middleware

import (
	"encoding/json"

	"tally/internal/config"
	"tally/internal/models"
	"tally/internal/services/idempotency"
	"tally/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HeaderIdempotencyKey is the client-supplied key header, distinct from the
// ledger's referenceId.
const HeaderIdempotencyKey = "Idempotency-Key"

// Idempotency enforces the caller contract around the mutating wallet
// routes: validate the key, replay the stored response on a hit, and store
// the serialized response after a successful execution. Store failures are
// logged but never fail the request; the ledger's referenceId uniqueness
// still guards against re-application.
func Idempotency(store idempotency.Service, rules config.ValidationRules, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderIdempotencyKey)
		if err := idempotency.ValidateKey(key, rules.IdempotencyKeyMinLength, rules.IdempotencyKeyMaxLength); err != nil {
			return utils.BadRequest(c, err.Error())
		}

		result, err := store.CheckKey(c.Context(), key)
		if err != nil {
			logger.Warn("idempotency check failed", zap.Error(err))
		} else if result.Exists {
			c.Set("X-Idempotent-Replay", "true")
			return utils.Success(c, result.Response)
		}

		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() == fiber.StatusOK {
			var body models.JSON
			if err := json.Unmarshal(c.Response().Body(), &body); err != nil {
				logger.Warn("failed to decode response for idempotency store", zap.Error(err))
				return nil
			}
			if err := store.StoreKey(c.Context(), key, body); err != nil {
				logger.Warn("failed to store idempotency response", zap.Error(err))
			}
		}
		return nil
	}
}

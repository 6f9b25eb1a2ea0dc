// Package routes defines the API routing configuration. It wires
// repositories, services and handlers, and applies rate limiting and
// idempotency middleware per route group.
package routes

import (
	"net/http"

	"tally/internal/config"
	"tally/internal/handlers"
	"tally/internal/metrics"
	"tally/internal/middleware"
	"tally/internal/repositories"
	"tally/internal/services/idempotency"
	"tally/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies carries everything SetupRoutes needs from main.
type Dependencies struct {
	DB        *gorm.DB
	Config    config.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Collector *metrics.Collector
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	ledgerRepo := repositories.NewLedgerRepository(deps.DB)
	idempotencyRepo := repositories.NewIdempotencyRepository(deps.DB)

	walletService := wallet.NewService(
		ledgerRepo,
		repositories.CacheService,
		wallet.Config{
			Limits:     deps.Config.TransactionLimits,
			Validation: deps.Config.Validation,
			Retry:      deps.Config.Retry,
		},
		deps.Collector,
		deps.Logger,
	)
	idempotencyService := idempotency.NewService(idempotencyRepo, deps.Config.Idempotency.TTL, deps.Logger)

	walletHandler := handlers.NewWalletHandler(walletService)
	statsHandler := handlers.NewStatsHandler(deps.Collector, deps.Config.Metrics.DefaultWindow)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Tally API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))

	api := app.Group("/api")
	api.Use(rateLimiter(deps.Config.RateLimit.GeneralMax, deps.Config.RateLimit))

	walletGroup := api.Group("/wallet")

	balance := walletGroup.Group("", rateLimiter(deps.Config.RateLimit.BalanceMax, deps.Config.RateLimit))
	balance.Get("/balance", walletHandler.GetBalance)
	balance.Get("/transactions", walletHandler.GetTransactions)
	balance.Get("/stats", statsHandler.GetStats)

	mutations := walletGroup.Group("",
		rateLimiter(deps.Config.RateLimit.TransactionMax, deps.Config.RateLimit),
		middleware.Idempotency(idempotencyService, deps.Config.Validation, deps.Logger),
	)
	mutations.Post("/topup", walletHandler.TopUp)
	mutations.Post("/bonus", walletHandler.Bonus)
	mutations.Post("/spend", walletHandler.Spend)

	walletGroup.Post("/provision", walletHandler.ProvisionWallet)
}

func rateLimiter(max int, settings config.RateLimitSettings) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: settings.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})
}

package handlers

import (
	"time"

	"tally/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

type StatsHandler struct {
	collector     *metrics.Collector
	defaultWindow time.Duration
}

func NewStatsHandler(collector *metrics.Collector, defaultWindow time.Duration) *StatsHandler {
	return &StatsHandler{collector: collector, defaultWindow: defaultWindow}
}

// GetStats returns windowed operation statistics. The window is given in
// minutes via ?window=, defaulting to the configured window.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	window := h.defaultWindow
	if minutes := c.QueryInt("window", 0); minutes > 0 {
		window = time.Duration(minutes) * time.Minute
	}

	return c.JSON(fiber.Map{
		"windowMinutes": int(window.Minutes()),
		"stats":         h.collector.Stats(window),
	})
}

package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ExpireCoins runs the expiration sweep on demand and returns its summary.
func (h *Handler) ExpireCoins(c *fiber.Ctx) error {
	slog.Info("manual expiration sweep requested", "ip", c.IP())

	result, err := h.expire.Run(c.UserContext())
	if err != nil {
		return h.fail(c, err, "expire batch")
	}
	h.notifier.LogExpireResult(result)
	return c.JSON(result)
}

package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

const BatchTokenHeader = "X-Batch-Token"

// BatchToken guards batch endpoints with a shared secret. An empty token
// leaves the route open, which is meant for local runs only.
func BatchToken(token string) fiber.Handler {
	if token == "" {
		slog.Warn("BATCH_TOKEN is not set, batch endpoints are unauthenticated")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	expected := []byte(token)
	return func(c *fiber.Ctx) error {
		got := c.Get(BatchTokenHeader)
		if got == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "batch token missing"})
		}
		if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			slog.Warn("invalid batch token", "ip", c.IP(), "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid batch token"})
		}
		return c.Next()
	}
}

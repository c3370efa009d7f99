package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logging returns middleware that logs each request with its status and duration.
func Logging() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.UserContext(), level, "request handled",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"request_id", RequestIDFrom(c),
			"duration", time.Since(start),
		)
		return err
	}
}

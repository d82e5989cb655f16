package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// requestContext binds store round trips to the request and to timeout, so
// an abandoned or slow request stops scanning.
func requestContext(c fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), timeout)
}

// jsonError returns a failure response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

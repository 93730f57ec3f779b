package handlers

import (
	"errors"

	"github.com/anjiri1684/learnhub/logger"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors that escape route handlers as {"error": ...}.
// Internal errors are logged and never shown to the client.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("Request failed", "path", c.Path(), "method", c.Method(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

package dto

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evalbridge/evalbridge/internal/validator"
)

// ParseAndValidate parses the request body into the given struct and validates
// it. On failure it writes the error response and returns ok=false; the caller
// must stop handling the request.
func ParseAndValidate(c *fiber.Ctx, v any) (ok bool, err error) {
	if err := c.BodyParser(v); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body: " + err.Error(),
		})
	}

	if err := validator.Validate(v); err != nil {
		if validationErrors, isValidation := err.(validator.ValidationErrors); isValidation {
			return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Validation Error",
				"message": "Request validation failed",
				"errors":  validationErrors,
			})
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	}

	return true, nil
}

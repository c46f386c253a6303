// Package testutil provides shared test utilities for the EvalBridge API.
package testutil

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/evalbridge/evalbridge/internal/middleware"
)

// TestProjectMiddleware creates a middleware that sets the project ID in context.
// Use this in tests to simulate authenticated requests.
func TestProjectMiddleware(projectID uuid.UUID) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(string(middleware.ContextKeyProjectID), projectID)
		return c.Next()
	}
}

// TestFormMiddleware creates a middleware that sets both project and form IDs
// in context. Use this in tests to simulate form-scoped requests.
func TestFormMiddleware(projectID uuid.UUID, formID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(string(middleware.ContextKeyProjectID), projectID)
		c.Locals(string(middleware.ContextKeyFormID), formID)
		return c.Next()
	}
}

// TestAPIKeyMiddleware creates a middleware that sets the project and API key
// IDs in context. Use this in tests to simulate API key authenticated requests.
func TestAPIKeyMiddleware(projectID, apiKeyID uuid.UUID) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(string(middleware.ContextKeyProjectID), projectID)
		c.Locals(string(middleware.ContextKeyAPIKeyID), apiKeyID)
		c.Locals(string(middleware.ContextKeyAuthType), middleware.AuthTypeAPIKey)
		return c.Next()
	}
}

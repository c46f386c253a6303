package middleware

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/evalbridge/evalbridge/internal/service"
)

// ContextKey type for context keys
type ContextKey string

const (
	// Context keys
	ContextKeyProjectID ContextKey = "projectID"
	ContextKeyFormID    ContextKey = "formID"
	ContextKeyAPIKeyID  ContextKey = "apiKeyID"
	ContextKeyAuthType  ContextKey = "authType"
)

// AuthType represents the type of authentication used
type AuthType string

const (
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeJWT    AuthType = "jwt"
)

// DefaultFormID is used when the caller does not scope requests to a form
const DefaultFormID = "default"

// FormIDHeader carries the caller's form scope
const FormIDHeader = "X-Form-ID"

// AuthMiddleware handles authentication
type AuthMiddleware struct {
	authService *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireAuth validates either an API key pair or an operator JWT. The
// authenticated project id is placed in the request context; every downstream
// lookup is scoped by it.
func (m *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if publicKey, secretKey, ok := extractKeyPair(c); ok {
			keyCtx, err := m.authService.VerifyAPIKey(c.Context(), publicKey, secretKey)
			if err == nil {
				c.Locals(string(ContextKeyProjectID), keyCtx.ProjectID)
				c.Locals(string(ContextKeyAPIKeyID), keyCtx.APIKeyID)
				c.Locals(string(ContextKeyAuthType), AuthTypeAPIKey)
				return c.Next()
			}
		}

		if token := extractBearerToken(c); token != "" {
			claims, err := m.authService.VerifyOperatorToken(token)
			if err == nil {
				c.Locals(string(ContextKeyProjectID), claims.ProjectID)
				c.Locals(string(ContextKeyAuthType), AuthTypeJWT)
				return c.Next()
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "Unauthorized",
			"message": "Valid authentication required",
		})
	}
}

// FormScope resolves the caller's form id from the X-Form-ID header, falling
// back to the default form. Runs after authentication.
func FormScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		formID := strings.TrimSpace(c.Get(FormIDHeader))
		if formID == "" {
			formID = DefaultFormID
		}
		c.Locals(string(ContextKeyFormID), formID)
		return c.Next()
	}
}

// extractKeyPair extracts a public/secret API key pair from Basic auth
func extractKeyPair(c *fiber.Ctx) (string, string, bool) {
	auth := c.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return "", "", false
	}

	publicKey, secretKey, found := strings.Cut(string(decoded), ":")
	if !found || publicKey == "" || secretKey == "" {
		return "", "", false
	}
	return publicKey, secretKey, true
}

// extractBearerToken extracts a JWT from the Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// GetProjectID gets the project ID from context
func GetProjectID(c *fiber.Ctx) (uuid.UUID, bool) {
	projectID, ok := c.Locals(string(ContextKeyProjectID)).(uuid.UUID)
	return projectID, ok
}

// GetFormID gets the form ID from context
func GetFormID(c *fiber.Ctx) string {
	if formID, ok := c.Locals(string(ContextKeyFormID)).(string); ok && formID != "" {
		return formID
	}
	return DefaultFormID
}

// GetAPIKeyID gets the API key ID from context
func GetAPIKeyID(c *fiber.Ctx) (uuid.UUID, bool) {
	apiKeyID, ok := c.Locals(string(ContextKeyAPIKeyID)).(uuid.UUID)
	return apiKeyID, ok
}

// GetAuthType gets the authentication type from context
func GetAuthType(c *fiber.Ctx) (AuthType, bool) {
	authType, ok := c.Locals(string(ContextKeyAuthType)).(AuthType)
	return authType, ok
}

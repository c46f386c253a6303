package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/dto"
	"github.com/evalbridge/evalbridge/internal/middleware"
	"github.com/evalbridge/evalbridge/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// IssueToken handles POST /v1/auth/token. The caller authenticates with
// an API key and receives a short-lived operator token scoped to the
// key's project. A key cannot mint tokens for another project.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	keyProject, ok := middleware.GetProjectID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Project ID not found")
	}
	if authType, _ := middleware.GetAuthType(c); authType != middleware.AuthTypeAPIKey {
		return errorResponse(c, fiber.StatusForbidden, "Operator tokens can only be issued with an API key")
	}

	var req dto.TokenRequest
	if ok, err := dto.ParseAndValidate(c, &req); !ok {
		return err
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid project ID")
	}
	if projectID != keyProject {
		return errorResponse(c, fiber.StatusForbidden, "API key is not scoped to the requested project")
	}

	token, err := h.authService.IssueOperatorToken(projectID, req.Subject)
	if err != nil {
		h.logger.Error("failed to issue operator token",
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to issue token")
	}

	return c.JSON(dto.TokenResponse{Token: token})
}

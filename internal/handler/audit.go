package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/service"
)

// AuditHandler exposes the evaluation workflow audit log
type AuditHandler struct {
	auditService *service.AuditService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List handles GET /v1/audit
func (h *AuditHandler) List(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	entries, err := h.auditService.List(c.Context(), projectID, c.QueryInt("limit"))
	if err != nil {
		h.logger.Error("failed to list audit entries", zap.Error(err))
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"entries": entries})
}

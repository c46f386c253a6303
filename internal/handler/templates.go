package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/dto"
	"github.com/evalbridge/evalbridge/internal/service"
)

// TemplatesHandler handles prompt template catalog endpoints
type TemplatesHandler struct {
	templateService *service.TemplateService
	logger          *zap.Logger
}

// NewTemplatesHandler creates a new templates handler
func NewTemplatesHandler(templateService *service.TemplateService, logger *zap.Logger) *TemplatesHandler {
	return &TemplatesHandler{
		templateService: templateService,
		logger:          logger,
	}
}

// Create handles POST /v1/templates
func (h *TemplatesHandler) Create(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	var input domain.PromptTemplateInput
	if ok, err := dto.ParseAndValidate(c, &input); !ok {
		return err
	}

	tmpl, err := h.templateService.Create(c.Context(), projectID, &input)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tmpl)
}

// Get handles GET /v1/templates/:templateId
func (h *TemplatesHandler) Get(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	templateID, err := uuid.Parse(c.Params("templateId"))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid template ID")
	}

	tmpl, err := h.templateService.Get(c.Context(), projectID, templateID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(tmpl)
}

// List handles GET /v1/templates
func (h *TemplatesHandler) List(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	filter := &domain.PromptTemplateFilter{ProjectID: projectID}
	if v := c.Query("kind"); v != "" {
		kind, parseErr := domain.ParseEvaluationKind(v)
		if parseErr != nil {
			return respondError(c, parseErr)
		}
		filter.Kind = &kind
	}
	if v := c.Query("name"); v != "" {
		filter.Name = &v
	}

	list, err := h.templateService.List(c.Context(), filter,
		parseQueryInt(c, "limit", 50), parseQueryInt(c, "offset", 0))
	if err != nil {
		h.logger.Error("failed to list templates", zap.Error(err))
		return respondError(c, err)
	}

	return c.JSON(list)
}

// Update handles PATCH /v1/templates/:templateId
func (h *TemplatesHandler) Update(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	templateID, err := uuid.Parse(c.Params("templateId"))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid template ID")
	}

	var input domain.PromptTemplateUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	tmpl, err := h.templateService.Update(c.Context(), projectID, templateID, &input)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(tmpl)
}

// Delete handles DELETE /v1/templates/:templateId
func (h *TemplatesHandler) Delete(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	templateID, err := uuid.Parse(c.Params("templateId"))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid template ID")
	}

	if err := h.templateService.Delete(c.Context(), projectID, templateID); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

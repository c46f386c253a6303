package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/dto"
	"github.com/evalbridge/evalbridge/internal/service"
)

// ReferencesHandler handles reference dataset storage endpoints
type ReferencesHandler struct {
	referenceService *service.ReferenceService
	logger           *zap.Logger
}

// NewReferencesHandler creates a new references handler
func NewReferencesHandler(referenceService *service.ReferenceService, logger *zap.Logger) *ReferencesHandler {
	return &ReferencesHandler{
		referenceService: referenceService,
		logger:           logger,
	}
}

// Put handles PUT /v1/references/:name
func (h *ReferencesHandler) Put(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	var req dto.PutReferenceRequest
	if ok, err := dto.ParseAndValidate(c, &req); !ok {
		return err
	}

	if err := h.referenceService.Put(c.Context(), projectID, c.Params("name"), req.Record); err != nil {
		h.logger.Error("failed to store reference", zap.Error(err))
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Get handles GET /v1/references/:name
func (h *ReferencesHandler) Get(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	record, err := h.referenceService.Get(c.Context(), projectID, c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(record)
}

// Delete handles DELETE /v1/references/:name
func (h *ReferencesHandler) Delete(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	if err := h.referenceService.Delete(c.Context(), projectID, c.Params("name")); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/service"
)

// ScoresHandler exposes recorded evaluation scores
type ScoresHandler struct {
	scoreService *service.ScoreService
	logger       *zap.Logger
}

// NewScoresHandler creates a new scores handler
func NewScoresHandler(scoreService *service.ScoreService, logger *zap.Logger) *ScoresHandler {
	return &ScoresHandler{
		scoreService: scoreService,
		logger:       logger,
	}
}

// ListByTrace handles GET /v1/traces/:traceId/scores
func (h *ScoresHandler) ListByTrace(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	traceID := c.Params("traceId")
	if traceID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Trace ID required")
	}

	scores, err := h.scoreService.ListByTrace(c.Context(), projectID, traceID)
	if err != nil {
		h.logger.Error("failed to list scores", zap.Error(err))
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"scores": scores})
}

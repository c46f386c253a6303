package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/service"
)

// TracesHandler handles trace candidate listing
type TracesHandler struct {
	aggregationService *service.AggregationService
	logger             *zap.Logger
}

// NewTracesHandler creates a new traces handler
func NewTracesHandler(aggregationService *service.AggregationService, logger *zap.Logger) *TracesHandler {
	return &TracesHandler{
		aggregationService: aggregationService,
		logger:             logger,
	}
}

// ListCandidates handles GET /v1/traces
func (h *TracesHandler) ListCandidates(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	filter := &domain.CandidateFilter{ProjectID: projectID}
	if v := c.Query("userId"); v != "" {
		filter.UserID = &v
	}
	if v := c.Query("sessionId"); v != "" {
		filter.SessionID = &v
	}
	if v := c.Query("name"); v != "" {
		filter.Name = &v
	}
	if v := c.Query("search"); v != "" {
		filter.Search = &v
	}
	if v := c.Query("fromTime"); v != "" {
		if t, parseErr := time.Parse(time.RFC3339, v); parseErr == nil {
			filter.FromTime = &t
		}
	}
	if v := c.Query("toTime"); v != "" {
		if t, parseErr := time.Parse(time.RFC3339, v); parseErr == nil {
			filter.ToTime = &t
		}
	}

	list, err := h.aggregationService.ListCandidates(c.Context(), filter, c.Query("orderBy"))
	if err != nil {
		h.logger.Error("failed to list candidates", zap.Error(err))
		return respondError(c, err)
	}

	return c.JSON(list)
}

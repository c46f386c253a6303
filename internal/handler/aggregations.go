package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/dto"
	"github.com/evalbridge/evalbridge/internal/middleware"
	"github.com/evalbridge/evalbridge/internal/service"
)

// AggregationsHandler handles detail aggregation endpoints
type AggregationsHandler struct {
	aggregationService *service.AggregationService
	logger             *zap.Logger
}

// NewAggregationsHandler creates a new aggregations handler
func NewAggregationsHandler(aggregationService *service.AggregationService, logger *zap.Logger) *AggregationsHandler {
	return &AggregationsHandler{
		aggregationService: aggregationService,
		logger:             logger,
	}
}

// StartAggregation handles POST /v1/aggregations
func (h *AggregationsHandler) StartAggregation(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	var req dto.StartAggregationRequest
	if ok, err := dto.ParseAndValidate(c, &req); !ok {
		return err
	}

	formID := middleware.GetFormID(c)

	var state *domain.AggregationState
	if len(req.CandidateIDs) > 0 {
		state, err = h.aggregationService.StartAggregation(
			c.Context(), projectID, formID, req.CandidateIDs, req.Wait)
	} else {
		state, err = h.aggregationService.StartAggregationFromFilter(
			c.Context(), projectID, formID, candidateFilter(projectID, req.Filter), req.Wait)
	}
	if err != nil {
		h.logger.Error("failed to start aggregation", zap.Error(err))
		return respondError(c, err)
	}

	status := fiber.StatusAccepted
	if req.Wait {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(state)
}

// candidateFilter maps the request filter onto the listing filter for the
// caller's project.
func candidateFilter(projectID uuid.UUID, f *dto.AggregationFilter) *domain.CandidateFilter {
	filter := &domain.CandidateFilter{ProjectID: projectID}
	if f == nil {
		return filter
	}
	filter.UserID = f.UserID
	filter.SessionID = f.SessionID
	filter.Name = f.Name
	filter.Search = f.Search
	filter.FromTime = f.FromTime
	filter.ToTime = f.ToTime
	return filter
}

// GetState handles GET /v1/aggregations
func (h *AggregationsHandler) GetState(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	state, err := h.aggregationService.GetState(projectID, middleware.GetFormID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(state)
}

// SelectCandidate handles GET /v1/aggregations/candidates/:candidateId
func (h *AggregationsHandler) SelectCandidate(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	candidateID := c.Params("candidateId")
	if candidateID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Candidate ID required")
	}

	detail, err := h.aggregationService.SelectCandidate(projectID, middleware.GetFormID(c), candidateID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(detail)
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/dto"
	"github.com/evalbridge/evalbridge/internal/middleware"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
	"github.com/evalbridge/evalbridge/internal/service"
)

// EvaluationsHandler handles the validate/execute evaluation endpoints
type EvaluationsHandler struct {
	evaluationService *service.EvaluationService
	templateService   *service.TemplateService
	logger            *zap.Logger
}

// NewEvaluationsHandler creates a new evaluations handler
func NewEvaluationsHandler(evaluationService *service.EvaluationService, templateService *service.TemplateService, logger *zap.Logger) *EvaluationsHandler {
	return &EvaluationsHandler{
		evaluationService: evaluationService,
		templateService:   templateService,
		logger:            logger,
	}
}

// Validate handles POST /v1/evaluations/validate
func (h *EvaluationsHandler) Validate(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	var req dto.ValidateRequest
	if ok, err := dto.ParseAndValidate(c, &req); !ok {
		return err
	}

	params := &service.ValidateParams{
		Kind:              req.Kind,
		PromptTemplate:    req.PromptTemplate,
		SelectedVariables: req.SelectedVariables,
		TraceID:           req.TraceID,
		ReferenceName:     req.ReferenceName,
		ReferenceJSON:     req.Reference,
	}

	// A stored template supplies both the text and the declared variables
	// when the caller does not inline them.
	if params.PromptTemplate == "" && req.TemplateName != "" {
		tmpl, err := h.templateService.GetByName(c.Context(), projectID, req.TemplateName)
		if err != nil {
			return respondError(c, err)
		}
		params.PromptTemplate = tmpl.Template
		if len(params.SelectedVariables) == 0 {
			params.SelectedVariables = tmpl.Variables
		}
	}

	session, err := h.evaluationService.Validate(c.Context(), projectID, middleware.GetFormID(c), params)
	if err != nil {
		if apperrors.IsRemote(err) {
			h.logger.Warn("validate rejected by scoring service", zap.Error(err))
		}
		return respondError(c, err)
	}

	return c.JSON(session)
}

// Execute handles POST /v1/evaluations/execute
func (h *EvaluationsHandler) Execute(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	session, err := h.evaluationService.Execute(c.Context(), projectID, middleware.GetFormID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(session)
}

// GetSession handles GET /v1/evaluations/session
func (h *EvaluationsHandler) GetSession(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	return c.JSON(h.evaluationService.Session(projectID, middleware.GetFormID(c)))
}

// ResetSession handles DELETE /v1/evaluations/session
func (h *EvaluationsHandler) ResetSession(c *fiber.Ctx) error {
	projectID, err := RequireProjectID(c)
	if err != nil {
		return err
	}

	h.evaluationService.Reset(projectID, middleware.GetFormID(c))
	return c.SendStatus(fiber.StatusNoContent)
}

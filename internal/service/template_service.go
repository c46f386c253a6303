package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
	"github.com/evalbridge/evalbridge/internal/validator"
)

// TemplateRepository is the persistence surface for prompt templates
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *domain.PromptTemplate) error
	GetByID(ctx context.Context, projectID, templateID uuid.UUID) (*domain.PromptTemplate, error)
	GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.PromptTemplate, error)
	List(ctx context.Context, filter *domain.PromptTemplateFilter, limit, offset int) (*domain.PromptTemplateList, error)
	Update(ctx context.Context, projectID, templateID uuid.UUID, input *domain.PromptTemplateUpdateInput) error
	Delete(ctx context.Context, projectID, templateID uuid.UUID) error
}

// TemplateService manages the prompt template catalog
type TemplateService struct {
	repo   TemplateRepository
	logger *zap.Logger
}

// NewTemplateService creates a new template service
func NewTemplateService(repo TemplateRepository, logger *zap.Logger) *TemplateService {
	return &TemplateService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and stores a new template
func (s *TemplateService) Create(ctx context.Context, projectID uuid.UUID, input *domain.PromptTemplateInput) (*domain.PromptTemplate, error) {
	if err := validator.Validate(input); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	kind, err := domain.ParseEvaluationKind(input.Kind)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tmpl := &domain.PromptTemplate{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      input.Name,
		Kind:      kind,
		Template:  input.Template,
		Variables: input.Variables,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Description != nil {
		tmpl.Description = *input.Description
	}

	if err := s.repo.Create(ctx, tmpl); err != nil {
		return nil, err
	}

	s.logger.Info("prompt template created",
		zap.String("template_id", tmpl.ID.String()),
		zap.String("name", tmpl.Name),
		zap.String("kind", string(kind)),
	)

	return tmpl, nil
}

// Get retrieves a template by ID
func (s *TemplateService) Get(ctx context.Context, projectID, templateID uuid.UUID) (*domain.PromptTemplate, error) {
	return s.repo.GetByID(ctx, projectID, templateID)
}

// GetByName retrieves a template by name
func (s *TemplateService) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.PromptTemplate, error) {
	return s.repo.GetByName(ctx, projectID, name)
}

// List retrieves templates with filtering and pagination
func (s *TemplateService) List(ctx context.Context, filter *domain.PromptTemplateFilter, limit, offset int) (*domain.PromptTemplateList, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// Update applies a partial update to a template
func (s *TemplateService) Update(ctx context.Context, projectID, templateID uuid.UUID, input *domain.PromptTemplateUpdateInput) (*domain.PromptTemplate, error) {
	if input.Description == nil && input.Template == nil && len(input.Variables) == 0 {
		return nil, apperrors.Validation("no fields to update")
	}

	if err := s.repo.Update(ctx, projectID, templateID, input); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, projectID, templateID)
}

// Delete removes a template
func (s *TemplateService) Delete(ctx context.Context, projectID, templateID uuid.UUID) error {
	if err := s.repo.Delete(ctx, projectID, templateID); err != nil {
		return err
	}

	s.logger.Info("prompt template deleted", zap.String("template_id", templateID.String()))
	return nil
}

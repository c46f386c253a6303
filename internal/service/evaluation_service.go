package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
)

// ReferenceStore resolves stored reference datasets by name for quality
// evaluations.
type ReferenceStore interface {
	Get(ctx context.Context, projectID uuid.UUID, name string) (map[string]any, error)
}

// ValidateParams carries the transport-level inputs to a validate call. The
// selected trace is referenced by candidate id and resolved from the form's
// aggregation; the reference may be supplied inline or by stored name.
type ValidateParams struct {
	Kind              string
	PromptTemplate    string
	SelectedVariables []string
	TraceID           string
	ReferenceName     string
	ReferenceJSON     map[string]any
}

// EvaluationService drives evaluation sessions on top of the per-form
// coordinators, resolving the selected trace and reference dataset before
// the protocol runs.
type EvaluationService struct {
	coordinators *CoordinatorRegistry
	aggregations *AggregationService
	references   ReferenceStore
	logger       *zap.Logger
}

// NewEvaluationService creates a new evaluation service. references may be
// nil when no reference storage is configured.
func NewEvaluationService(coordinators *CoordinatorRegistry, aggregations *AggregationService, references ReferenceStore, logger *zap.Logger) *EvaluationService {
	return &EvaluationService{
		coordinators: coordinators,
		aggregations: aggregations,
		references:   references,
		logger:       logger,
	}
}

// Validate resolves the params against the form's aggregation state and runs
// the preview phase. An unknown kind or an unresolvable candidate fails
// before any scoring service traffic.
func (s *EvaluationService) Validate(ctx context.Context, projectID uuid.UUID, formID string, params *ValidateParams) (*domain.EvaluationSession, error) {
	kind, err := domain.ParseEvaluationKind(params.Kind)
	if err != nil {
		return nil, err
	}

	trace, err := s.aggregations.SelectCandidate(projectID, formID, params.TraceID)
	if err != nil {
		return nil, err
	}

	reference := params.ReferenceJSON
	if reference == nil && kind.RequiresReference() && params.ReferenceName != "" && s.references != nil {
		reference, err = s.references.Get(ctx, projectID, params.ReferenceName)
		if err != nil {
			return nil, err
		}
	}

	coord := s.coordinators.GetOrCreate(projectID, formID)
	return coord.Validate(ctx, &domain.ValidateInput{
		Kind:              kind,
		PromptTemplate:    params.PromptTemplate,
		SelectedVariables: params.SelectedVariables,
		SelectedTrace:     trace,
		ReferenceJSON:     reference,
	})
}

// Execute runs the scoring phase for the form's validated session
func (s *EvaluationService) Execute(ctx context.Context, projectID uuid.UUID, formID string) (*domain.EvaluationSession, error) {
	return s.coordinators.GetOrCreate(projectID, formID).Execute(ctx)
}

// Session returns the form's current session snapshot
func (s *EvaluationService) Session(projectID uuid.UUID, formID string) *domain.EvaluationSession {
	return s.coordinators.GetOrCreate(projectID, formID).Session()
}

// Reset discards the form's session
func (s *EvaluationService) Reset(projectID uuid.UUID, formID string) {
	s.coordinators.GetOrCreate(projectID, formID).Reset()
}

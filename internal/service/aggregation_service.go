package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

// AggregationService exposes the candidate listing and detail aggregation
// workflow to the transport layer.
type AggregationService struct {
	store       TraceStore
	aggregators *AggregatorRegistry
	cfg         config.AggregationConfig
	logger      *zap.Logger
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(store TraceStore, aggregators *AggregatorRegistry, cfg config.AggregationConfig, logger *zap.Logger) *AggregationService {
	return &AggregationService{
		store:       store,
		aggregators: aggregators,
		cfg:         cfg,
		logger:      logger,
	}
}

// ListCandidates returns one page of trace candidates matching the filter
func (s *AggregationService) ListCandidates(ctx context.Context, filter *domain.CandidateFilter, orderBy string) (*domain.CandidateList, error) {
	if orderBy == "" {
		orderBy = "start_time"
	}
	if !domain.ValidCandidateOrderByFields[orderBy] {
		return nil, apperrors.Validation(fmt.Sprintf("invalid order by field: %s", orderBy))
	}

	list, err := s.store.ListCandidates(ctx, filter, s.cfg.PageSize, orderBy)
	if err != nil {
		return nil, apperrors.Internal("failed to list trace candidates").WithError(err)
	}
	return list, nil
}

// StartAggregation replaces the form's candidate set and begins concurrent
// detail retrieval. When wait is set it blocks until every candidate settled;
// otherwise it returns the initial loading state immediately.
func (s *AggregationService) StartAggregation(ctx context.Context, projectID uuid.UUID, formID string, candidateIDs []string, wait bool) (*domain.AggregationState, error) {
	if len(candidateIDs) == 0 {
		return nil, apperrors.Validation("at least one candidate is required")
	}
	if s.cfg.MaxCandidates > 0 && len(candidateIDs) > s.cfg.MaxCandidates {
		return nil, apperrors.Validation(fmt.Sprintf("candidate count %d exceeds maximum %d", len(candidateIDs), s.cfg.MaxCandidates))
	}

	agg := s.aggregators.GetOrCreate(projectID, formID)

	// Fetches outlive the request: they run on the background context so a
	// client disconnect does not abandon the candidate set mid-flight.
	agg.SetCandidates(context.WithoutCancel(ctx), candidateIDs)

	if wait {
		if err := agg.Wait(ctx); err != nil {
			return nil, apperrors.Internal("aggregation wait interrupted").WithError(err)
		}
	}

	state := agg.State()
	if state.AllFailed() {
		s.logger.Error("aggregation failed for every candidate",
			zap.String("form_id", formID),
			zap.Int("candidates", len(candidateIDs)),
		)
	}
	return state, nil
}

// StartAggregationFromFilter lists the candidates matching the filter and
// aggregates the resulting page. An empty page is a validation error rather
// than an empty aggregation.
func (s *AggregationService) StartAggregationFromFilter(ctx context.Context, projectID uuid.UUID, formID string, filter *domain.CandidateFilter, wait bool) (*domain.AggregationState, error) {
	list, err := s.ListCandidates(ctx, filter, "")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(list.Traces))
	for _, candidate := range list.Traces {
		ids = append(ids, candidate.ID)
	}
	if len(ids) == 0 {
		return nil, apperrors.Validation("no candidates match the filter")
	}
	if s.cfg.MaxCandidates > 0 && len(ids) > s.cfg.MaxCandidates {
		ids = ids[:s.cfg.MaxCandidates]
	}

	return s.StartAggregation(ctx, projectID, formID, ids, wait)
}

// GetState returns the form's current aggregation state
func (s *AggregationService) GetState(projectID uuid.UUID, formID string) (*domain.AggregationState, error) {
	agg := s.aggregators.Get(projectID, formID)
	if agg == nil {
		return nil, apperrors.NotFound("aggregation")
	}
	return agg.State(), nil
}

// SelectCandidate returns the normalized detail for a successfully fetched
// candidate on the form.
func (s *AggregationService) SelectCandidate(projectID uuid.UUID, formID, candidateID string) (*domain.TraceDetail, error) {
	agg := s.aggregators.Get(projectID, formID)
	if agg == nil {
		return nil, apperrors.NotFound("aggregation")
	}
	return agg.Select(candidateID)
}

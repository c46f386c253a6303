package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

// ScoreStore reads back recorded evaluation scores
type ScoreStore interface {
	ListByTrace(ctx context.Context, projectID, traceID string) ([]domain.Score, error)
}

// ScoreService exposes recorded scores to the transport layer
type ScoreService struct {
	store  ScoreStore
	logger *zap.Logger
}

// NewScoreService creates a new score service
func NewScoreService(store ScoreStore, logger *zap.Logger) *ScoreService {
	return &ScoreService{store: store, logger: logger}
}

// ListByTrace returns the scores recorded for one trace, newest first
func (s *ScoreService) ListByTrace(ctx context.Context, projectID uuid.UUID, traceID string) ([]domain.Score, error) {
	scores, err := s.store.ListByTrace(ctx, projectID.String(), traceID)
	if err != nil {
		return nil, apperrors.Internal("failed to list scores").WithError(err)
	}
	if scores == nil {
		scores = []domain.Score{}
	}
	return scores, nil
}

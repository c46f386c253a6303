package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditLister reads back recorded audit entries
type AuditLister interface {
	List(ctx context.Context, projectID uuid.UUID, limit int) ([]domain.AuditEntry, error)
}

// AuditService exposes the audit log to the transport layer
type AuditService struct {
	repo   AuditLister
	logger *zap.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditLister, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// List returns the project's most recent audit entries, newest first
func (s *AuditService) List(ctx context.Context, projectID uuid.UUID, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}

	entries, err := s.repo.List(ctx, projectID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to list audit entries").WithError(err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

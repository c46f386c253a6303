package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	pgrepo "github.com/evalbridge/evalbridge/internal/repository/postgres"
)

const (
	// TypeAuditCleanup is the task type for pruning expired audit entries
	TypeAuditCleanup = "audit:cleanup"

	defaultAuditRetentionDays = 90
)

// AuditCleanupPayload is the payload for audit cleanup tasks
type AuditCleanupPayload struct {
	RetentionDays int  `json:"retention_days"`
	DryRun        bool `json:"dry_run"`
}

// NewAuditCleanupTask creates a new audit cleanup task
func NewAuditCleanupTask(payload *AuditCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeAuditCleanup, data, asynq.MaxRetry(2), asynq.Timeout(10*time.Minute)), nil
}

// CleanupWorker prunes audit entries past their retention window
type CleanupWorker struct {
	logger    *zap.Logger
	auditRepo *pgrepo.AuditRepository
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(logger *zap.Logger, auditRepo *pgrepo.AuditRepository) *CleanupWorker {
	return &CleanupWorker{
		logger:    logger,
		auditRepo: auditRepo,
	}
}

// ProcessTask processes an audit cleanup task
func (w *CleanupWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload AuditCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal cleanup payload: %w", err)
	}

	if payload.RetentionDays <= 0 {
		payload.RetentionDays = defaultAuditRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -payload.RetentionDays)

	if payload.DryRun {
		w.logger.Info("audit cleanup dry run",
			zap.Int("retention_days", payload.RetentionDays),
			zap.Time("cutoff", cutoff),
		)
		return nil
	}

	deleted, err := w.auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("audit cleanup failed: %w", err)
	}

	w.logger.Info("audit cleanup completed",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
	)
	return nil
}

package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/evalbridge/evalbridge/internal/domain"
)

// Enqueuer hands tasks to the background worker via asynq. It satisfies
// service.ScoreEnqueuer.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates an enqueuer backed by the given asynq client
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueScoreRecord queues a completed evaluation score for persistence
func (e *Enqueuer) EnqueueScoreRecord(ctx context.Context, score *domain.Score) error {
	task, err := NewScoreRecordTask(&ScoreRecordPayload{Score: score})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue("default")); err != nil {
		return fmt.Errorf("failed to enqueue score task: %w", err)
	}
	return nil
}

// EnqueueAuditCleanup queues an audit retention sweep
func (e *Enqueuer) EnqueueAuditCleanup(ctx context.Context, retentionDays int) error {
	task, err := NewAuditCleanupTask(&AuditCleanupPayload{RetentionDays: retentionDays})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue("low")); err != nil {
		return fmt.Errorf("failed to enqueue cleanup task: %w", err)
	}
	return nil
}

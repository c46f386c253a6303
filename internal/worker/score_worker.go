package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
	chrepo "github.com/evalbridge/evalbridge/internal/repository/clickhouse"
)

const (
	// TypeScoreRecord is the task type for persisting a completed evaluation score
	TypeScoreRecord = "score:record"
)

// ScoreRecordPayload is the payload for score record tasks
type ScoreRecordPayload struct {
	Score *domain.Score `json:"score"`
}

// NewScoreRecordTask creates a new score record task
func NewScoreRecordTask(payload *ScoreRecordPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score payload: %w", err)
	}
	return asynq.NewTask(TypeScoreRecord, data, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

// ScoreWorker writes completed evaluation scores to ClickHouse
type ScoreWorker struct {
	logger    *zap.Logger
	scoreRepo *chrepo.ScoreRepository
}

// NewScoreWorker creates a new score worker
func NewScoreWorker(logger *zap.Logger, scoreRepo *chrepo.ScoreRepository) *ScoreWorker {
	return &ScoreWorker{
		logger:    logger,
		scoreRepo: scoreRepo,
	}
}

// ProcessTask processes a score record task
func (w *ScoreWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ScoreRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal score payload: %w", err)
	}
	if payload.Score == nil {
		w.logger.Warn("score task carries no score, dropping")
		return nil
	}

	score := payload.Score
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now().UTC()
	}

	if err := w.scoreRepo.Create(ctx, score); err != nil {
		return fmt.Errorf("failed to persist score: %w", err)
	}

	w.logger.Info("score recorded",
		zap.String("score_id", score.ID),
		zap.String("project_id", score.ProjectID.String()),
		zap.String("trace_id", score.TraceID),
		zap.String("kind", string(score.Kind)),
	)
	return nil
}

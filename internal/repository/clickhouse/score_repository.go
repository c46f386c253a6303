package clickhouse

import (
	"context"
	"fmt"

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/pkg/database"
)

// ScoreRepository persists evaluation scores in ClickHouse
type ScoreRepository struct {
	db *database.ClickHouseDB
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db *database.ClickHouseDB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Create inserts a new score
func (r *ScoreRepository) Create(ctx context.Context, score *domain.Score) error {
	query := `
		INSERT INTO scores (
			id, project_id, trace_id, name, kind, value, comment, session_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if err := r.db.Exec(ctx, query,
		score.ID,
		score.ProjectID,
		score.TraceID,
		score.Name,
		string(score.Kind),
		score.Value,
		score.Comment,
		score.SessionID,
		score.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert score: %w", err)
	}

	return nil
}

// ListByTrace retrieves the scores recorded for one trace
func (r *ScoreRepository) ListByTrace(ctx context.Context, projectID, traceID string) ([]domain.Score, error) {
	query := `
		SELECT id, project_id, trace_id, name, kind, value, comment, session_id, created_at
		FROM scores FINAL
		WHERE project_id = ? AND trace_id = ?
		ORDER BY created_at DESC
	`

	var scores []domain.Score
	if err := r.db.Select(ctx, &scores, query, projectID, traceID); err != nil {
		return nil, fmt.Errorf("failed to select scores: %w", err)
	}

	return scores, nil
}

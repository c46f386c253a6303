package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evalbridge/evalbridge/internal/domain"
)

// AuditRepository records evaluation workflow audit entries via sqlx
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record inserts one audit entry
func (r *AuditRepository) Record(ctx context.Context, input *domain.AuditEntryInput) error {
	query := `
		INSERT INTO audit_entries (
			id, project_id, form_id, action, kind,
			trace_id, session_id, success, detail, request_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New(), input.ProjectID, input.FormID, input.Action, input.Kind,
		input.TraceID, input.SessionID, input.Success, input.Detail, input.RequestID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// List retrieves the most recent audit entries for a project
func (r *AuditRepository) List(ctx context.Context, projectID uuid.UUID, limit int) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, project_id, form_id, action, kind,
			trace_id, session_id, success, detail, request_id, created_at
		FROM audit_entries
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var entries []domain.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, projectID, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, nil
}

// DeleteOlderThan removes audit entries created before the cutoff and
// returns the number of rows deleted.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit entries: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted audit entries: %w", err)
	}

	return rows, nil
}

package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/pkg/database"
)

// TraceRepository reads trace candidates and raw details from ClickHouse
type TraceRepository struct {
	db *database.ClickHouseDB
}

// NewTraceRepository creates a new trace repository
func NewTraceRepository(db *database.ClickHouseDB) *TraceRepository {
	return &TraceRepository{db: db}
}

// ListCandidates retrieves one page of trace candidates matching the filter
func (r *TraceRepository) ListCandidates(ctx context.Context, filter *domain.CandidateFilter, pageSize int, orderBy string) (*domain.CandidateList, error) {
	conditions := []string{"project_id = ?"}
	args := []interface{}{filter.ProjectID}

	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}

	if filter.SessionID != nil {
		conditions = append(conditions, "session_id = ?")
		args = append(args, *filter.SessionID)
	}

	if filter.Name != nil {
		conditions = append(conditions, "name LIKE ?")
		args = append(args, "%"+*filter.Name+"%")
	}

	if filter.FromTime != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, *filter.FromTime)
	}

	if filter.ToTime != nil {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, *filter.ToTime)
	}

	if filter.Search != nil {
		conditions = append(conditions, "(positionCaseInsensitive(input, ?) > 0 OR positionCaseInsensitive(output, ?) > 0)")
		args = append(args, *filter.Search, *filter.Search)
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT count() FROM traces FINAL WHERE %s", whereClause)
	var totalCount uint64
	row := r.db.QueryRow(ctx, countQuery, args...)
	if err := row.Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	if !domain.ValidCandidateOrderByFields[orderBy] {
		orderBy = "start_time"
	}

	query := fmt.Sprintf(`
		SELECT id
		FROM traces FINAL
		WHERE %s
		ORDER BY %s DESC, id DESC
		LIMIT ?
	`, whereClause, orderBy)

	args = append(args, pageSize+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.TraceCandidate
	for rows.Next() {
		var candidate domain.TraceCandidate
		if err := rows.Scan(&candidate.ID); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}

	hasMore := len(candidates) > pageSize
	if hasMore {
		candidates = candidates[:pageSize]
	}

	return &domain.CandidateList{
		Traces:     candidates,
		TotalCount: int64(totalCount),
		HasMore:    hasMore,
	}, nil
}

// FetchDetail retrieves one trace's raw detail record. The record is returned
// as loosely typed key-value data; normalization happens upstream. Failures
// are classified so the caller's retry policy can distinguish permanent
// failures from transient ones.
func (r *TraceRepository) FetchDetail(ctx context.Context, projectID uuid.UUID, traceID string) (map[string]any, error) {
	query := `
		SELECT id, start_time, input, output, metadata
		FROM traces FINAL
		WHERE project_id = ? AND id = ?
		LIMIT 1
	`

	rows, err := r.db.Query(ctx, query, projectID, traceID)
	if err != nil {
		return nil, classifyFetchError(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, classifyFetchError(err)
		}
		return nil, domain.NewFetchError(domain.FetchNotFound, fmt.Errorf("trace %s not found", traceID))
	}

	var (
		id        string
		startTime time.Time
		input     *string
		output    *string
		metadata  map[string]string
	)
	if err := rows.Scan(&id, &startTime, &input, &output, &metadata); err != nil {
		return nil, classifyFetchError(err)
	}

	raw := map[string]any{
		"id":        id,
		"timestamp": startTime,
	}
	if input != nil {
		raw["input"] = *input
	}
	if output != nil {
		raw["output"] = *output
	}
	for key, value := range metadata {
		if _, reserved := raw[key]; !reserved {
			raw[key] = value
		}
	}

	return raw, nil
}

// ClickHouse exception codes for denied access
const (
	chCodeAccessDenied = 497
	chCodeAuthFailed   = 516
)

// classifyFetchError maps backend failures onto fetch failure classes.
// Access failures are permanent; everything else is assumed transient.
func classifyFetchError(err error) *domain.FetchError {
	var exception *clickhouse.Exception
	if errors.As(err, &exception) {
		switch exception.Code {
		case chCodeAccessDenied, chCodeAuthFailed:
			return domain.NewFetchError(domain.FetchUnauthorized, err)
		}
	}
	return domain.NewFetchError(domain.FetchOther, err)
}

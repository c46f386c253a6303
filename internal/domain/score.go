package domain

import (
	"time"

	"github.com/google/uuid"
)

// Score is a recorded evaluation outcome for a trace. Completed evaluations
// are written to ClickHouse by the score worker.
type Score struct {
	ID        string         `json:"id" ch:"id"`
	ProjectID uuid.UUID      `json:"projectId" ch:"project_id"`
	TraceID   string         `json:"traceId" ch:"trace_id"`
	Name      string         `json:"name" ch:"name"`
	Kind      EvaluationKind `json:"kind" ch:"kind"`
	Value     *float64       `json:"value,omitempty" ch:"value"`
	Comment   string         `json:"comment,omitempty" ch:"comment"`
	SessionID string         `json:"sessionId,omitempty" ch:"session_id"`
	CreatedAt time.Time      `json:"createdAt" ch:"created_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded for the evaluation workflow
const (
	AuditActionValidate = "evaluation.validate"
	AuditActionExecute  = "evaluation.execute"
)

// AuditEntry is one recorded validate/execute outcome. Writing it is
// best-effort and never fails the request being audited.
type AuditEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProjectID uuid.UUID `json:"projectId" db:"project_id"`
	FormID    string    `json:"formId" db:"form_id"`
	Action    string    `json:"action" db:"action"`
	Kind      string    `json:"kind" db:"kind"`
	TraceID   string    `json:"traceId,omitempty" db:"trace_id"`
	SessionID string    `json:"sessionId,omitempty" db:"session_id"`
	Success   bool      `json:"success" db:"success"`
	Detail    string    `json:"detail,omitempty" db:"detail"`
	RequestID string    `json:"requestId,omitempty" db:"request_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AuditEntryInput represents input for recording an audit entry
type AuditEntryInput struct {
	ProjectID uuid.UUID
	FormID    string
	Action    string
	Kind      string
	TraceID   string
	SessionID string
	Success   bool
	Detail    string
	RequestID string
}

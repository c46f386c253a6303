package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
	"github.com/evalbridge/evalbridge/internal/pkg/id"
	"github.com/evalbridge/evalbridge/internal/pkg/metrics"
	"github.com/evalbridge/evalbridge/internal/scoring"
)

// ScoringClient is the scoring service surface the coordinator depends on
type ScoringClient interface {
	Preview(ctx context.Context, kind domain.EvaluationKind, req *scoring.PreviewRequest) (*scoring.PreviewResponse, error)
	Execute(ctx context.Context, kind domain.EvaluationKind, sessionID string) (json.RawMessage, error)
}

// AuditRecorder records validate/execute outcomes. Recording is best-effort.
type AuditRecorder interface {
	Record(ctx context.Context, input *domain.AuditEntryInput) error
}

// ScoreEnqueuer hands completed evaluation results to the background worker
type ScoreEnqueuer interface {
	EnqueueScoreRecord(ctx context.Context, score *domain.Score) error
}

// SessionCoordinator drives the two-phase validate/execute protocol against
// the scoring service for one project-scoped form. It owns at most one live
// session: a new validate replaces whatever session existed before, and a
// generation token discards responses that arrive after their session was
// replaced.
//
// The session id returned by validate is opaque. The coordinator stores it
// and plays it back on execute; it never inspects or persists it.
type SessionCoordinator struct {
	projectID uuid.UUID
	formID    string
	client    ScoringClient
	audit     AuditRecorder
	enqueuer  ScoreEnqueuer
	logger    *zap.Logger

	mu         sync.Mutex
	generation uint64
	session    *domain.EvaluationSession
	traceID    string
}

// NewSessionCoordinator creates a coordinator for one project-scoped form.
// audit and enqueuer may be nil; the corresponding side effects are skipped.
func NewSessionCoordinator(projectID uuid.UUID, formID string, client ScoringClient, audit AuditRecorder, enqueuer ScoreEnqueuer, logger *zap.Logger) *SessionCoordinator {
	return &SessionCoordinator{
		projectID: projectID,
		formID:    formID,
		client:    client,
		audit:     audit,
		enqueuer:  enqueuer,
		logger:    logger,
	}
}

// Validate runs the preview phase. Preconditions are checked before any
// transport call: an incomplete input fails fast without touching the scoring
// service. A successful validate stores the returned session id and preview;
// a failed one leaves the session without an id, so a subsequent execute is
// rejected as out of order.
func (c *SessionCoordinator) Validate(ctx context.Context, input *domain.ValidateInput) (*domain.EvaluationSession, error) {
	if err := checkValidatePreconditions(input); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.session = &domain.EvaluationSession{
		Kind:  input.Kind,
		Phase: domain.PhaseValidating,
	}
	c.traceID = input.SelectedTrace.ID
	c.mu.Unlock()

	metrics.RecordSessionTransition(string(domain.PhaseValidating))

	resp, err := c.client.Preview(ctx, input.Kind, &scoring.PreviewRequest{
		PromptTemplate:    input.PromptTemplate,
		SelectedVariables: input.SelectedVariables,
		Trace:             input.SelectedTrace,
		Reference:         input.ReferenceJSON,
	})

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil, apperrors.Sequence("validation superseded by a newer request")
	}

	if err != nil {
		c.session.Phase = domain.PhaseFailed
		c.session.FailureReason = err.Error()
		c.mu.Unlock()

		metrics.RecordSessionTransition(string(domain.PhaseFailed))
		c.recordAudit(domain.AuditActionValidate, string(input.Kind), input.SelectedTrace.ID, "", false, err.Error())
		return nil, err
	}

	now := time.Now().UTC()
	c.session.SessionID = resp.SessionID
	c.session.PreviewPrompt = resp.FilledPromptPreview
	c.session.Phase = domain.PhaseValidated
	c.session.ValidatedAt = &now
	snapshot := *c.session
	c.mu.Unlock()

	metrics.RecordSessionTransition(string(domain.PhaseValidated))
	c.recordAudit(domain.AuditActionValidate, string(input.Kind), input.SelectedTrace.ID, resp.SessionID, true, resp.Message)

	c.logger.Info("evaluation session validated",
		zap.String("form_id", c.formID),
		zap.String("kind", string(input.Kind)),
	)

	return &snapshot, nil
}

// Execute runs the scoring phase against the stored session. It requires a
// session id from a successful validate; a failed execute keeps the session
// id so the caller may retry without re-validating.
func (c *SessionCoordinator) Execute(ctx context.Context) (*domain.EvaluationSession, error) {
	c.mu.Lock()
	session := c.session
	if !session.Executable() {
		c.mu.Unlock()
		return nil, apperrors.Sequence("no validated session to execute")
	}
	gen := c.generation
	kind := session.Kind
	sessionID := session.SessionID
	traceID := c.traceID
	session.Phase = domain.PhaseExecuting
	c.mu.Unlock()

	metrics.RecordSessionTransition(string(domain.PhaseExecuting))

	result, err := c.client.Execute(ctx, kind, sessionID)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil, apperrors.Sequence("execution superseded by a newer request")
	}

	if err != nil {
		// The session id stays in place: the remote session may still be
		// live, so the caller can retry execute directly.
		c.session.Phase = domain.PhaseFailed
		c.session.FailureReason = err.Error()
		c.mu.Unlock()

		metrics.RecordSessionTransition(string(domain.PhaseFailed))
		c.recordAudit(domain.AuditActionExecute, string(kind), traceID, sessionID, false, err.Error())
		return nil, err
	}

	now := time.Now().UTC()
	c.session.Result = result
	c.session.FailureReason = ""
	c.session.Phase = domain.PhaseCompleted
	c.session.CompletedAt = &now
	snapshot := *c.session
	c.mu.Unlock()

	metrics.RecordSessionTransition(string(domain.PhaseCompleted))
	c.recordAudit(domain.AuditActionExecute, string(kind), traceID, sessionID, true, "")
	c.enqueueScore(kind, traceID, sessionID, result, now)

	c.logger.Info("evaluation session completed",
		zap.String("form_id", c.formID),
		zap.String("kind", string(kind)),
	)

	return &snapshot, nil
}

// Session returns a snapshot of the current session, or an idle placeholder
// when no validate has run yet.
func (c *SessionCoordinator) Session() *domain.EvaluationSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return &domain.EvaluationSession{Phase: domain.PhaseIdle}
	}
	snapshot := *c.session
	return &snapshot
}

// Reset discards the current session, returning the coordinator to idle
func (c *SessionCoordinator) Reset() {
	c.mu.Lock()
	c.generation++
	c.session = nil
	c.traceID = ""
	c.mu.Unlock()

	metrics.RecordSessionTransition(string(domain.PhaseIdle))
}

func (c *SessionCoordinator) recordAudit(action, kind, traceID, sessionID string, success bool, detail string) {
	if c.audit == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.audit.Record(ctx, &domain.AuditEntryInput{
		ProjectID: c.projectID,
		FormID:    c.formID,
		Action:    action,
		Kind:      kind,
		TraceID:   traceID,
		SessionID: sessionID,
		Success:   success,
		Detail:    detail,
	})
	if err != nil {
		c.logger.Warn("failed to record audit entry",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (c *SessionCoordinator) enqueueScore(kind domain.EvaluationKind, traceID, sessionID string, result json.RawMessage, completedAt time.Time) {
	if c.enqueuer == nil {
		return
	}

	score := &domain.Score{
		ID:        id.NewUUID(),
		ProjectID: c.projectID,
		TraceID:   traceID,
		Name:      string(kind),
		Kind:      kind,
		SessionID: sessionID,
		CreatedAt: completedAt,
	}

	// The result is opaque; a numeric score and comment are lifted out when
	// the payload happens to carry them.
	var parsed struct {
		Score   *float64 `json:"score"`
		Comment string   `json:"comment"`
	}
	if err := json.Unmarshal(result, &parsed); err == nil {
		score.Value = parsed.Score
		score.Comment = parsed.Comment
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.enqueuer.EnqueueScoreRecord(ctx, score); err != nil {
		c.logger.Warn("failed to enqueue score recording",
			zap.String("trace_id", traceID),
			zap.Error(err),
		)
	}
}

// checkValidatePreconditions rejects incomplete inputs before any network
// traffic happens.
func checkValidatePreconditions(input *domain.ValidateInput) error {
	if input == nil {
		return apperrors.Precondition("validate input is required")
	}
	if _, err := input.Kind.Spec(); err != nil {
		return err
	}
	if strings.TrimSpace(input.PromptTemplate) == "" {
		return apperrors.Precondition("prompt template is required")
	}
	if len(input.SelectedVariables) == 0 {
		return apperrors.Precondition("at least one variable must be selected")
	}
	if input.SelectedTrace == nil {
		return apperrors.Precondition("a trace must be selected")
	}
	if input.Kind.RequiresReference() && input.ReferenceJSON == nil {
		return apperrors.Precondition("a reference record is required for quality evaluation")
	}
	return nil
}

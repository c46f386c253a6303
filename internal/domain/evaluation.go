package domain

import (
	"encoding/json"
	"time"

	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

// EvaluationKind is the category of scoring being performed. The set is
// closed: each known kind carries its endpoint paths and whether a reference
// payload is required, and unknown kinds are rejected at construction time.
type EvaluationKind string

const (
	// KindAccuracy scores a single trace against the filled template
	KindAccuracy EvaluationKind = "accuracy"
	// KindQuality compares the trace against a reference record
	KindQuality EvaluationKind = "quality"
)

// KindSpec describes how a kind talks to the scoring service
type KindSpec struct {
	PreviewPath       string
	ExecutePath       string
	RequiresReference bool
}

var kindSpecs = map[EvaluationKind]KindSpec{
	KindAccuracy: {
		PreviewPath:       "/api/eval/accuracy/preview",
		ExecutePath:       "/api/eval/accuracy/execute",
		RequiresReference: false,
	},
	KindQuality: {
		PreviewPath:       "/api/eval/quality/preview",
		ExecutePath:       "/api/eval/quality/execute",
		RequiresReference: true,
	},
}

// ParseEvaluationKind resolves a kind string, rejecting unknown kinds
func ParseEvaluationKind(s string) (EvaluationKind, error) {
	kind := EvaluationKind(s)
	if _, ok := kindSpecs[kind]; !ok {
		return "", apperrors.Configuration("unknown evaluation kind: " + s)
	}
	return kind, nil
}

// Spec returns the kind's endpoint and payload requirements
func (k EvaluationKind) Spec() (KindSpec, error) {
	spec, ok := kindSpecs[k]
	if !ok {
		return KindSpec{}, apperrors.Configuration("unknown evaluation kind: " + string(k))
	}
	return spec, nil
}

// RequiresReference reports whether the kind needs a reference payload
func (k EvaluationKind) RequiresReference() bool {
	spec, ok := kindSpecs[k]
	return ok && spec.RequiresReference
}

// SessionPhase is the evaluation session state machine phase
type SessionPhase string

const (
	PhaseIdle       SessionPhase = "idle"
	PhaseValidating SessionPhase = "validating"
	PhaseValidated  SessionPhase = "validated"
	PhaseExecuting  SessionPhase = "executing"
	PhaseCompleted  SessionPhase = "completed"
	PhaseFailed     SessionPhase = "failed"
)

// EvaluationSession is the single live session owned by one coordinator
// instance. SessionID is an opaque token owned by the scoring service; it is
// held in process memory only and never interpreted or persisted.
type EvaluationSession struct {
	SessionID     string          `json:"sessionId,omitempty"`
	Kind          EvaluationKind  `json:"kind"`
	PreviewPrompt string          `json:"previewPrompt,omitempty"`
	Phase         SessionPhase    `json:"phase"`
	Result        json.RawMessage `json:"result,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	ValidatedAt   *time.Time      `json:"validatedAt,omitempty"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

// Executable reports whether execute may be attempted: the session must hold
// a sessionId from a successful validate. A session whose validate failed
// carries no sessionId, so execute after it is a sequence error.
func (s *EvaluationSession) Executable() bool {
	return s != nil && s.SessionID != "" &&
		(s.Phase == PhaseValidated || s.Phase == PhaseFailed)
}

// ValidateInput carries the caller-supplied inputs to a validate call
type ValidateInput struct {
	Kind              EvaluationKind
	PromptTemplate    string
	SelectedVariables []string
	SelectedTrace     *TraceDetail
	ReferenceJSON     map[string]any
}

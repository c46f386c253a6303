package dto

import "time"

// AggregationFilter selects candidates by a listing query instead of naming
// them; the matching page becomes the candidate set.
type AggregationFilter struct {
	UserID    *string    `json:"userId,omitempty"`
	SessionID *string    `json:"sessionId,omitempty"`
	Name      *string    `json:"name,omitempty"`
	Search    *string    `json:"search,omitempty"`
	FromTime  *time.Time `json:"fromTime,omitempty"`
	ToTime    *time.Time `json:"toTime,omitempty"`
}

// StartAggregationRequest selects the candidate set for detail aggregation,
// either by explicit candidate ids or by a listing filter. Explicit ids win
// when both are given.
type StartAggregationRequest struct {
	CandidateIDs []string           `json:"candidateIds" validate:"required_without=Filter,omitempty,min=1"`
	Filter       *AggregationFilter `json:"filter" validate:"required_without=CandidateIDs"`
	Wait         bool               `json:"wait"`
}

// ValidateRequest represents the validate phase payload. The template may be
// given inline or by stored template name; the reference likewise inline or
// by stored reference name.
type ValidateRequest struct {
	Kind              string         `json:"kind" validate:"required,evalkind"`
	PromptTemplate    string         `json:"promptTemplate,omitempty"`
	TemplateName      string         `json:"templateName,omitempty"`
	SelectedVariables []string       `json:"selectedVariables,omitempty"`
	TraceID           string         `json:"traceId" validate:"required"`
	ReferenceName     string         `json:"referenceName,omitempty"`
	Reference         map[string]any `json:"reference,omitempty"`
}

// PutReferenceRequest stores a reference dataset
type PutReferenceRequest struct {
	Record map[string]any `json:"record" validate:"required"`
}

// TokenRequest asks for an operator token
type TokenRequest struct {
	ProjectID string `json:"projectId" validate:"required,uuid"`
	Subject   string `json:"subject" validate:"required"`
}

// TokenResponse carries an issued operator token
type TokenResponse struct {
	Token string `json:"token"`
}

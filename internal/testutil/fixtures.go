package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/evalbridge/evalbridge/internal/domain"
)

// NewTestCandidateList creates a candidate page with the given trace IDs.
func NewTestCandidateList(ids ...string) *domain.CandidateList {
	candidates := make([]domain.TraceCandidate, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, domain.TraceCandidate{ID: id})
	}
	return &domain.CandidateList{
		Traces:     candidates,
		TotalCount: int64(len(candidates)),
	}
}

// NewTestTemplate creates a test prompt template with default values.
func NewTestTemplate(projectID uuid.UUID) *domain.PromptTemplate {
	return &domain.PromptTemplate{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      "test-template",
		Kind:      domain.KindAccuracy,
		Template:  "Rate the accuracy of {{output}} against {{input}}.",
		Variables: []string{"input", "output"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// NewTestAPIKey creates a test API key with default values. The secret hash
// is left empty; set it with service.HashSecretKey when verifying credentials.
func NewTestAPIKey(projectID uuid.UUID) *domain.APIKey {
	return &domain.APIKey{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      "test-key",
		PublicKey: "pk-test-" + uuid.New().String()[:8],
		CreatedAt: time.Now(),
	}
}

// NewTestScore creates a test score with default values.
func NewTestScore(projectID uuid.UUID, traceID string) *domain.Score {
	value := 0.85
	return &domain.Score{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		TraceID:   traceID,
		Name:      "accuracy",
		Kind:      domain.KindAccuracy,
		Value:     &value,
		CreatedAt: time.Now(),
	}
}

// NewTestRawDetail builds the raw payload shape returned by trace storage.
func NewTestRawDetail(id string) map[string]any {
	return map[string]any{
		"id":        id,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"input":     "test input",
		"output":    "test output",
	}
}

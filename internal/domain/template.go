package domain

import (
	"time"

	"github.com/google/uuid"
)

// PromptTemplate is a stored evaluation prompt template with its declared
// variables. Templates live in PostgreSQL and can be referenced by name from
// a validate call instead of inlining the template text.
type PromptTemplate struct {
	ID          uuid.UUID      `json:"id"`
	ProjectID   uuid.UUID      `json:"projectId"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Kind        EvaluationKind `json:"kind"`
	Template    string         `json:"template"`
	Variables   []string       `json:"variables"`
	CreatedBy   *uuid.UUID     `json:"createdBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// PromptTemplateInput represents input for creating a template
type PromptTemplateInput struct {
	Name        string   `json:"name" validate:"required,max=128"`
	Description *string  `json:"description,omitempty"`
	Kind        string   `json:"kind" validate:"required"`
	Template    string   `json:"template" validate:"required"`
	Variables   []string `json:"variables" validate:"required,min=1"`
}

// PromptTemplateUpdateInput represents input for updating a template
type PromptTemplateUpdateInput struct {
	Description *string  `json:"description,omitempty"`
	Template    *string  `json:"template,omitempty"`
	Variables   []string `json:"variables,omitempty"`
}

// PromptTemplateFilter represents filter options for listing templates
type PromptTemplateFilter struct {
	ProjectID uuid.UUID
	Kind      *EvaluationKind
	Name      *string
}

// PromptTemplateList represents a paginated list of templates
type PromptTemplateList struct {
	Templates  []PromptTemplate `json:"templates"`
	TotalCount int64            `json:"totalCount"`
	HasMore    bool             `json:"hasMore"`
}

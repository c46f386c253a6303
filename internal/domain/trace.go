package domain

import (
	"time"

	"github.com/google/uuid"
)

// TraceCandidate is the minimal handle returned by a listing query, prior to
// detail retrieval.
type TraceCandidate struct {
	ID string `json:"id"`
}

// TraceDetail is a normalized trace record. Every field is safe to render:
// never missing, never an object requiring further parsing to display.
type TraceDetail struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Input     string         `json:"input"`
	Output    string         `json:"output"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// CandidateFilter represents filter options for listing trace candidates
type CandidateFilter struct {
	ProjectID uuid.UUID
	UserID    *string
	SessionID *string
	Name      *string
	FromTime  *time.Time
	ToTime    *time.Time
	Search    *string
}

// CandidateList represents one page of trace candidates
type CandidateList struct {
	Traces     []TraceCandidate `json:"traces"`
	TotalCount int64            `json:"totalCount"`
	HasMore    bool             `json:"hasMore"`
}

// ValidCandidateOrderByFields for candidate listing
var ValidCandidateOrderByFields = map[string]bool{
	"start_time": true,
	"name":       true,
	"created_at": true,
}

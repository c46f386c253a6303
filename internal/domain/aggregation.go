package domain

import "fmt"

// FetchStatus is the lifecycle state of one candidate's detail fetch
type FetchStatus string

const (
	FetchStatusPending FetchStatus = "pending"
	FetchStatusSuccess FetchStatus = "success"
	FetchStatusFailed  FetchStatus = "failed"
)

// FetchCode classifies a detail fetch failure. Unauthorized and NotFound are
// permanent; Other is retried a bounded number of times.
type FetchCode string

const (
	FetchUnauthorized FetchCode = "unauthorized"
	FetchNotFound     FetchCode = "not_found"
	FetchOther        FetchCode = "other"
)

// FetchError is a per-candidate detail fetch failure
type FetchError struct {
	Code FetchCode
	Err  error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s)", e.Code)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class may be retried
func (e *FetchError) Retryable() bool {
	return e.Code == FetchOther
}

// NewFetchError wraps err with a failure classification
func NewFetchError(code FetchCode, err error) *FetchError {
	return &FetchError{Code: code, Err: err}
}

// FetchResult is one candidate's entry in an AggregationState
type FetchResult struct {
	CandidateID string       `json:"candidateId"`
	Status      FetchStatus  `json:"status"`
	Detail      *TraceDetail `json:"detail,omitempty"`
	Error       string       `json:"error,omitempty"`
	Attempts    int          `json:"attempts,omitempty"`
}

// AggregationState is the consolidated view over one candidate set. Results
// keep candidate order; completion order is not guaranteed.
type AggregationState struct {
	Generation uint64        `json:"generation"`
	Results    []FetchResult `json:"results"`
	IsLoading  bool          `json:"isLoading"`
	HasError   bool          `json:"hasError"`
	ErrorCount int           `json:"errorCount"`
	Succeeded  []TraceDetail `json:"succeeded"`
}

// AllFailed reports terminal failure: every candidate failed. Partial failure
// is not fatal; only this state is.
func (s *AggregationState) AllFailed() bool {
	return len(s.Results) > 0 && !s.IsLoading && len(s.Succeeded) == 0
}

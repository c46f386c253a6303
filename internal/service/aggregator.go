package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
	"github.com/evalbridge/evalbridge/internal/pkg/metrics"
	"github.com/evalbridge/evalbridge/internal/normalize"
)

// TraceStore is the collaborator backend capability the aggregator consumes:
// candidate listing and per-trace raw detail retrieval. Fetch failures are
// reported as *domain.FetchError so the retry policy can classify them.
type TraceStore interface {
	ListCandidates(ctx context.Context, filter *domain.CandidateFilter, pageSize int, orderBy string) (*domain.CandidateList, error)
	FetchDetail(ctx context.Context, projectID uuid.UUID, traceID string) (map[string]any, error)
}

// fetchEntry tracks one candidate's outcome within the current generation
type fetchEntry struct {
	candidateID string
	status      domain.FetchStatus
	detail      *domain.TraceDetail
	errMsg      string
	attempts    int
}

// DetailAggregator concurrently retrieves and normalizes trace details for
// one candidate set. All mutable state is confined behind the instance mutex,
// so each state transition runs to completion before the next begins. A
// generation token guards against late-arriving results from a superseded
// candidate set: they are discarded, never applied.
type DetailAggregator struct {
	projectID uuid.UUID
	store     TraceStore
	cfg       config.AggregationConfig
	logger    *zap.Logger

	// publish, when set, receives a state snapshot after every change
	publish func(*domain.AggregationState)

	// notifyMu serializes snapshot build and delivery, so a subscriber
	// never receives a stale snapshot after a newer one.
	notifyMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	entries    []*fetchEntry
	index      map[string]*fetchEntry
	pending    int
	memo       *domain.AggregationState
	settled    chan struct{}
}

// NewDetailAggregator creates an aggregator for one project-scoped form
func NewDetailAggregator(projectID uuid.UUID, store TraceStore, cfg config.AggregationConfig, logger *zap.Logger) *DetailAggregator {
	if cfg.FetchAttempts < 1 {
		cfg.FetchAttempts = 3
	}

	done := make(chan struct{})
	close(done)

	return &DetailAggregator{
		projectID: projectID,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		index:     make(map[string]*fetchEntry),
		settled:   done,
	}
}

// OnChange registers a callback invoked with a fresh snapshot after every
// state change. Must be set before the first SetCandidates call.
func (a *DetailAggregator) OnChange(fn func(*domain.AggregationState)) {
	a.publish = fn
}

// SetCandidates replaces the candidate set and fans out one fetch per
// candidate. Fetches are issued without waiting on one another; completion
// order is not guaranteed. Results for the previous candidate set are
// discarded when they arrive.
func (a *DetailAggregator) SetCandidates(ctx context.Context, candidateIDs []string) {
	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.entries = make([]*fetchEntry, 0, len(candidateIDs))
	a.index = make(map[string]*fetchEntry, len(candidateIDs))
	a.memo = nil
	a.pending = 0

	for _, id := range candidateIDs {
		if _, dup := a.index[id]; dup {
			continue
		}
		entry := &fetchEntry{candidateID: id, status: domain.FetchStatusPending}
		a.entries = append(a.entries, entry)
		a.index[id] = entry
		a.pending++
	}

	settled := make(chan struct{})
	a.settled = settled
	if a.pending == 0 {
		close(settled)
	}
	launch := make([]string, 0, len(a.entries))
	for _, entry := range a.entries {
		launch = append(launch, entry.candidateID)
	}
	a.mu.Unlock()

	for _, candidateID := range launch {
		go a.fetchCandidate(ctx, gen, candidateID)
	}

	a.notify()
}

// fetchCandidate runs one candidate's fetch-with-retry loop and applies the
// outcome, unless the generation has moved on in the meantime.
func (a *DetailAggregator) fetchCandidate(ctx context.Context, gen uint64, candidateID string) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= a.cfg.FetchAttempts; attempt++ {
		attempts = attempt
		raw, err := a.store.FetchDetail(ctx, a.projectID, candidateID)
		if err == nil {
			detail, warnings := normalize.Detail(raw)
			if detail == nil {
				// A payload that is not even an object will not improve on
				// retry; fail the candidate outright.
				a.applyFailure(gen, candidateID, attempts, domain.NewFetchError(domain.FetchOther, errRawNotObject))
				return
			}
			for _, w := range warnings {
				a.logger.Warn("detail normalization fallback applied",
					zap.String("trace_id", candidateID),
					zap.String("field", w.Field),
					zap.String("reason", w.Reason),
				)
				metrics.RecordNormalizationWarning(w.Field)
			}
			a.applySuccess(gen, candidateID, attempts, detail)
			return
		}

		lastErr = err
		fetchErr := asFetchError(err)
		if !fetchErr.Retryable() {
			break
		}
		if attempt < a.cfg.FetchAttempts {
			metrics.RecordDetailFetchRetry()
			select {
			case <-ctx.Done():
				a.applyFailure(gen, candidateID, attempts, domain.NewFetchError(domain.FetchOther, ctx.Err()))
				return
			case <-time.After(a.cfg.RetryBackoff()):
			}
		}
	}

	a.applyFailure(gen, candidateID, attempts, asFetchError(lastErr))
}

func (a *DetailAggregator) applySuccess(gen uint64, candidateID string, attempts int, detail *domain.TraceDetail) {
	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		return
	}
	entry := a.index[candidateID]
	if entry == nil || entry.status != domain.FetchStatusPending {
		a.mu.Unlock()
		return
	}
	entry.status = domain.FetchStatusSuccess
	entry.detail = detail
	entry.attempts = attempts
	a.settleLocked()
	a.mu.Unlock()

	metrics.RecordDetailFetch("success")
	a.notify()
}

func (a *DetailAggregator) applyFailure(gen uint64, candidateID string, attempts int, fetchErr *domain.FetchError) {
	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		return
	}
	entry := a.index[candidateID]
	if entry == nil || entry.status != domain.FetchStatusPending {
		a.mu.Unlock()
		return
	}
	entry.status = domain.FetchStatusFailed
	entry.errMsg = fetchErr.Error()
	entry.attempts = attempts
	a.settleLocked()
	a.mu.Unlock()

	a.logger.Warn("detail fetch failed permanently",
		zap.String("trace_id", candidateID),
		zap.String("code", string(fetchErr.Code)),
		zap.Int("attempts", attempts),
	)
	metrics.RecordDetailFetch("failed")
	a.notify()
}

// settleLocked is called with the mutex held after an entry transitions
func (a *DetailAggregator) settleLocked() {
	a.memo = nil
	a.pending--
	if a.pending == 0 {
		close(a.settled)
	}
}

// State returns the consolidated view over the current candidate set. The
// snapshot is memoized and rebuilt only after an underlying fetch outcome
// changes.
func (a *DetailAggregator) State() *domain.AggregationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *DetailAggregator) stateLocked() *domain.AggregationState {
	if a.memo != nil {
		return a.memo
	}

	state := &domain.AggregationState{
		Generation: a.generation,
		Results:    make([]domain.FetchResult, 0, len(a.entries)),
	}

	for _, entry := range a.entries {
		result := domain.FetchResult{
			CandidateID: entry.candidateID,
			Status:      entry.status,
			Attempts:    entry.attempts,
			Error:       entry.errMsg,
		}
		switch entry.status {
		case domain.FetchStatusPending:
			state.IsLoading = true
		case domain.FetchStatusSuccess:
			result.Detail = entry.detail
			state.Succeeded = append(state.Succeeded, *entry.detail)
		case domain.FetchStatusFailed:
			state.HasError = true
			state.ErrorCount++
		}
		state.Results = append(state.Results, result)
	}

	a.memo = state
	return state
}

// Select returns the normalized detail for a candidate in success state.
// Selecting a pending or failed candidate is a caller error.
func (a *DetailAggregator) Select(candidateID string) (*domain.TraceDetail, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.index[candidateID]
	if entry == nil {
		return nil, apperrors.NotFound("candidate")
	}
	if entry.status != domain.FetchStatusSuccess {
		return nil, apperrors.NotReady(candidateID)
	}

	detail := *entry.detail
	return &detail, nil
}

// Wait blocks until every candidate of the current generation has reached
// success or failed, or the context is canceled.
func (a *DetailAggregator) Wait(ctx context.Context) error {
	a.mu.Lock()
	settled := a.settled
	a.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-settled:
		return nil
	}
}

func (a *DetailAggregator) notify() {
	if a.publish == nil {
		return
	}
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	snapshot := a.stateLocked()
	a.mu.Unlock()
	a.publish(snapshot)
}

// asFetchError coerces an arbitrary error into a classified fetch error,
// defaulting to the retryable Other class.
func asFetchError(err error) *domain.FetchError {
	if err == nil {
		return domain.NewFetchError(domain.FetchOther, nil)
	}
	var fetchErr *domain.FetchError
	if apperrors.As(err, &fetchErr) {
		return fetchErr
	}
	return domain.NewFetchError(domain.FetchOther, err)
}

var errRawNotObject = apperrors.Internal("detail payload is not an object")

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

// MockTraceStore is a mock implementation of TraceStore
type MockTraceStore struct {
	mock.Mock
}

func (m *MockTraceStore) ListCandidates(ctx context.Context, filter *domain.CandidateFilter, pageSize int, orderBy string) (*domain.CandidateList, error) {
	args := m.Called(ctx, filter, pageSize, orderBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CandidateList), args.Error(1)
}

func (m *MockTraceStore) FetchDetail(ctx context.Context, projectID uuid.UUID, traceID string) (map[string]any, error) {
	args := m.Called(ctx, projectID, traceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func testAggregationConfig() config.AggregationConfig {
	return config.AggregationConfig{
		MaxCandidates:  50,
		FetchAttempts:  3,
		RetryBackoffMs: 1,
		PageSize:       20,
	}
}

func rawDetail(traceID string) map[string]any {
	return map[string]any{
		"id":        traceID,
		"timestamp": "2026-08-30T12:00:00Z",
		"input":     "question for " + traceID,
		"output":    "answer for " + traceID,
	}
}

func TestDetailAggregator_PartialFailure(t *testing.T) {
	projectID := uuid.New()
	store := new(MockTraceStore)

	store.On("FetchDetail", mock.Anything, projectID, "t1").Return(rawDetail("t1"), nil).Once()
	store.On("FetchDetail", mock.Anything, projectID, "t2").
		Return(nil, domain.NewFetchError(domain.FetchNotFound, errors.New("trace not found"))).Once()
	store.On("FetchDetail", mock.Anything, projectID, "t3").
		Return(nil, domain.NewFetchError(domain.FetchOther, errors.New("connection reset"))).Twice()
	store.On("FetchDetail", mock.Anything, projectID, "t3").Return(rawDetail("t3"), nil).Once()

	agg := NewDetailAggregator(projectID, store, testAggregationConfig(), zap.NewNop())
	agg.SetCandidates(context.Background(), []string{"t1", "t2", "t3"})
	require.NoError(t, agg.Wait(context.Background()))

	state := agg.State()
	assert.False(t, state.IsLoading)
	assert.True(t, state.HasError)
	assert.Equal(t, 1, state.ErrorCount)
	assert.Len(t, state.Succeeded, 2)
	assert.False(t, state.AllFailed())

	// Results keep candidate order regardless of completion order
	require.Len(t, state.Results, 3)
	assert.Equal(t, "t1", state.Results[0].CandidateID)
	assert.Equal(t, "t2", state.Results[1].CandidateID)
	assert.Equal(t, "t3", state.Results[2].CandidateID)

	assert.Equal(t, domain.FetchStatusSuccess, state.Results[0].Status)
	assert.Equal(t, domain.FetchStatusFailed, state.Results[1].Status)
	assert.Equal(t, domain.FetchStatusSuccess, state.Results[2].Status)

	// Permanent failures fail on the first attempt; retryable ones recover
	assert.Equal(t, 1, state.Results[1].Attempts)
	assert.Equal(t, 3, state.Results[2].Attempts)

	store.AssertExpectations(t)
}

func TestDetailAggregator_RetryableFailureExhaustsAttempts(t *testing.T) {
	projectID := uuid.New()
	store := new(MockTraceStore)

	store.On("FetchDetail", mock.Anything, projectID, "t1").
		Return(nil, domain.NewFetchError(domain.FetchOther, errors.New("timeout"))).Times(3)

	agg := NewDetailAggregator(projectID, store, testAggregationConfig(), zap.NewNop())
	agg.SetCandidates(context.Background(), []string{"t1"})
	require.NoError(t, agg.Wait(context.Background()))

	state := agg.State()
	assert.True(t, state.AllFailed())
	require.Len(t, state.Results, 1)
	assert.Equal(t, domain.FetchStatusFailed, state.Results[0].Status)
	assert.Equal(t, 3, state.Results[0].Attempts)
	assert.Contains(t, state.Results[0].Error, "timeout")

	store.AssertExpectations(t)
}

func TestDetailAggregator_UnauthorizedNotRetried(t *testing.T) {
	projectID := uuid.New()
	store := new(MockTraceStore)

	store.On("FetchDetail", mock.Anything, projectID, "t1").
		Return(nil, domain.NewFetchError(domain.FetchUnauthorized, errors.New("access denied"))).Once()
	store.On("FetchDetail", mock.Anything, projectID, "t2").
		Return(nil, domain.NewFetchError(domain.FetchNotFound, nil)).Once()

	agg := NewDetailAggregator(projectID, store, testAggregationConfig(), zap.NewNop())
	agg.SetCandidates(context.Background(), []string{"t1", "t2"})
	require.NoError(t, agg.Wait(context.Background()))

	state := agg.State()
	assert.True(t, state.AllFailed())
	assert.Equal(t, 2, state.ErrorCount)
	assert.Empty(t, state.Succeeded)

	store.AssertExpectations(t)
}

func TestDetailAggregator_NonObjectPayloadFailsWithoutRetry(t *testing.T) {
	projectID := uuid.New()
	store := new(MockTraceStore)

	store.On("FetchDetail", mock.Anything, projectID, "t1").Return(nil, nil).Once()

	agg := NewDetailAggregator(projectID, store, testAggregationConfig(), zap.NewNop())
	agg.SetCandidates(context.Background(), []string{"t1"})
	require.NoError(t, agg.Wait(context.Background()))

	state := agg.State()
	require.Len(t, state.Results, 1)
	assert.Equal(t, domain.FetchStatusFailed, state.Results[0].Status)
	assert.Equal(t, 1, state.Results[0].Attempts)

	store.AssertExpectations(t)
}

func TestDetailAggregator_Select(t *testing.T) {
	projectID := uuid.New()
	store := new(MockTraceStore)

	store.On("FetchDetail", mock.Anything, projectID, "ok").Return(rawDetail("ok"), nil).Once()
	store.On("FetchDetail", mock.Anything, projectID, "bad").
		Return(nil, domain.NewFetchError(domain.FetchNotFound, nil)).Once()

	agg := NewDetailAggregator(projectID, store, testAggregationConfig(), zap.NewNop())
	agg.SetCandidates(context.Background(), []string{"ok", "bad"})
	require.NoError(t, agg.Wait(context.Background()))

	detail, err := agg.Select("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", detail.ID)
	assert.Equal(t, "question for ok", detail.Input)

	_, err = agg.Select("bad")
	assert.True(t, apperrors.IsNotReady(err))

	_, err = agg.Select("unknown")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDetailAggregator_EmptyCandidateSet(t *testing.T) {
	agg := NewDetailAggregator(uuid.New(), new(MockTraceStore), testAggregationConfig(), zap.NewNop())
	agg.SetCandidates(context.Background(), nil)
	require.NoError(t, agg.Wait(context.Background()))

	state := agg.State()
	assert.False(t, state.IsLoading)
	assert.False(t, state.HasError)
	assert.False(t, state.AllFailed())
	assert.Empty(t, state.Results)
}

func TestDetailAggregator_NewCandidateSetDiscardsLateResults(t *testing.T) {
	projectID := uuid.New()
	store := new(MockTraceStore)
	release := make(chan struct{})

	store.On("FetchDetail", mock.Anything, projectID, "slow").
		Run(func(mock.Arguments) { <-release }).
		Return(rawDetail("slow"), nil).Once()
	store.On("FetchDetail", mock.Anything, projectID, "fast").Return(rawDetail("fast"), nil).Once()

	agg := NewDetailAggregator(projectID, store, testAggregationConfig(), zap.NewNop())
	agg.SetCandidates(context.Background(), []string{"slow"})
	agg.SetCandidates(context.Background(), []string{"fast"})
	require.NoError(t, agg.Wait(context.Background()))

	// Let the superseded fetch finish; its result must not be applied
	close(release)
	time.Sleep(20 * time.Millisecond)

	state := agg.State()
	require.Len(t, state.Results, 1)
	assert.Equal(t, "fast", state.Results[0].CandidateID)
	assert.Equal(t, domain.FetchStatusSuccess, state.Results[0].Status)
	assert.Len(t, state.Succeeded, 1)

	_, err := agg.Select("slow")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDetailAggregator_WaitHonorsContext(t *testing.T) {
	projectID := uuid.New()
	store := new(MockTraceStore)
	release := make(chan struct{})
	defer close(release)

	store.On("FetchDetail", mock.Anything, projectID, "slow").
		Run(func(mock.Arguments) { <-release }).
		Return(rawDetail("slow"), nil).Once()

	agg := NewDetailAggregator(projectID, store, testAggregationConfig(), zap.NewNop())
	agg.SetCandidates(context.Background(), []string{"slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := agg.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.True(t, agg.State().IsLoading)
}

func TestDetailAggregator_NormalizationFallbacksStillSucceed(t *testing.T) {
	projectID := uuid.New()
	store := new(MockTraceStore)

	// Missing id and numeric input still normalize into a renderable record
	store.On("FetchDetail", mock.Anything, projectID, "t1").Return(map[string]any{
		"timestamp": "not a timestamp",
		"input":     float64(42),
		"output":    "ok",
	}, nil).Once()

	agg := NewDetailAggregator(projectID, store, testAggregationConfig(), zap.NewNop())
	agg.SetCandidates(context.Background(), []string{"t1"})
	require.NoError(t, agg.Wait(context.Background()))

	state := agg.State()
	require.Len(t, state.Succeeded, 1)
	assert.NotEmpty(t, state.Succeeded[0].ID)
	assert.Equal(t, "42", state.Succeeded[0].Input)
	assert.False(t, state.HasError)
}

func TestDetailAggregator_PublishesSnapshotsInOrder(t *testing.T) {
	projectID := uuid.New()
	candidates := []string{"t1", "t2", "t3", "t4", "t5"}

	for i := 0; i < 20; i++ {
		store := new(MockTraceStore)
		for _, id := range candidates {
			store.On("FetchDetail", mock.Anything, projectID, id).Return(rawDetail(id), nil).Once()
		}

		var pubMu sync.Mutex
		var published []*domain.AggregationState

		agg := NewDetailAggregator(projectID, store, testAggregationConfig(), zap.NewNop())
		agg.OnChange(func(state *domain.AggregationState) {
			pubMu.Lock()
			published = append(published, state)
			pubMu.Unlock()
		})

		agg.SetCandidates(context.Background(), candidates)
		require.NoError(t, agg.Wait(context.Background()))

		require.Eventually(t, func() bool {
			pubMu.Lock()
			defer pubMu.Unlock()
			return len(published) > 0 && !published[len(published)-1].IsLoading
		}, time.Second, time.Millisecond)

		// Delivery order must match snapshot recency: once a settled
		// snapshot went out, no stale loading view may follow it.
		pubMu.Lock()
		settled := false
		for _, state := range published {
			if settled {
				assert.False(t, state.IsLoading)
			}
			settled = settled || !state.IsLoading
		}
		last := published[len(published)-1]
		assert.Len(t, last.Succeeded, len(candidates))
		pubMu.Unlock()
	}
}

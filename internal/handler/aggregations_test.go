package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/service"
	"github.com/evalbridge/evalbridge/internal/testutil"
)

// MockTraceStore mocks trace candidate storage
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

func newAggregationService(store *MockTraceStore) *service.AggregationService {
	logger := zap.NewNop()
	cfg := config.AggregationConfig{
		MaxCandidates:  20,
		FetchAttempts:  3,
		RetryBackoffMs: 1,
		PageSize:       50,
	}
	registry := service.NewAggregatorRegistry(store, cfg, service.NewRealtimeHub(), logger)
	return service.NewAggregationService(store, registry, cfg, logger)
}

func setupAggregationsTestApp(store *MockTraceStore, projectID uuid.UUID) *fiber.App {
	app := fiber.New()
	logger := zap.NewNop()

	svc := newAggregationService(store)
	tracesHandler := NewTracesHandler(svc, logger)
	aggregationsHandler := NewAggregationsHandler(svc, logger)

	app.Use(testutil.TestFormMiddleware(projectID, "default"))
	app.Get("/v1/traces", tracesHandler.ListCandidates)
	app.Post("/v1/aggregations", aggregationsHandler.StartAggregation)
	app.Get("/v1/aggregations", aggregationsHandler.GetState)
	app.Get("/v1/aggregations/candidates/:candidateId", aggregationsHandler.SelectCandidate)

	return app
}

func startBody(t *testing.T, ids []string, wait bool) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]any{"candidateIds": ids, "wait": wait})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestTracesHandler_ListCandidates(t *testing.T) {
	t.Run("successfully lists candidates", func(t *testing.T) {
		store := new(MockTraceStore)
		projectID := uuid.New()
		app := setupAggregationsTestApp(store, projectID)

		expected := testutil.NewTestCandidateList("t1", "t2")
		store.On("ListCandidates", mock.Anything, mock.MatchedBy(func(f *domain.CandidateFilter) bool {
			return f.ProjectID == projectID
		}), 50, "start_time").Return(expected, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/traces", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result domain.CandidateList
		respBody, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(respBody, &result))
		assert.Len(t, result.Traces, 2)
		assert.Equal(t, "t1", result.Traces[0].ID)

		store.AssertExpectations(t)
	})

	t.Run("rejects unknown order by field", func(t *testing.T) {
		store := new(MockTraceStore)
		app := setupAggregationsTestApp(store, uuid.New())

		req := httptest.NewRequest(http.MethodGet, "/v1/traces?orderBy=total_cost", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		store.AssertNotCalled(t, "ListCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAggregationsHandler_StartAggregation(t *testing.T) {
	t.Run("returns settled state when waiting", func(t *testing.T) {
		store := new(MockTraceStore)
		projectID := uuid.New()
		app := setupAggregationsTestApp(store, projectID)

		store.On("FetchDetail", mock.Anything, projectID, "t1").
			Return(testutil.NewTestRawDetail("t1"), nil).Once()
		store.On("FetchDetail", mock.Anything, projectID, "t2").
			Return(nil, domain.NewFetchError(domain.FetchNotFound, assert.AnError)).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/aggregations", startBody(t, []string{"t1", "t2"}, true))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var state domain.AggregationState
		respBody, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(respBody, &state))
		assert.False(t, state.IsLoading)
		assert.True(t, state.HasError)
		assert.Equal(t, 1, state.ErrorCount)
		require.Len(t, state.Results, 2)
		assert.Equal(t, "t1", state.Results[0].CandidateID)
		assert.Equal(t, domain.FetchStatusSuccess, state.Results[0].Status)
		assert.Equal(t, domain.FetchStatusFailed, state.Results[1].Status)

		store.AssertExpectations(t)
	})

	t.Run("returns accepted without waiting", func(t *testing.T) {
		store := new(MockTraceStore)
		projectID := uuid.New()
		app := setupAggregationsTestApp(store, projectID)

		store.On("FetchDetail", mock.Anything, projectID, "t1").
			Return(testutil.NewTestRawDetail("t1"), nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/aggregations", startBody(t, []string{"t1"}, false))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})

	t.Run("rejects empty candidate set", func(t *testing.T) {
		store := new(MockTraceStore)
		app := setupAggregationsTestApp(store, uuid.New())

		req := httptest.NewRequest(http.MethodPost, "/v1/aggregations", startBody(t, []string{}, false))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		store.AssertNotCalled(t, "FetchDetail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("aggregates the page matching a filter", func(t *testing.T) {
		store := new(MockTraceStore)
		projectID := uuid.New()
		app := setupAggregationsTestApp(store, projectID)

		store.On("ListCandidates", mock.Anything, mock.MatchedBy(func(f *domain.CandidateFilter) bool {
			return f.ProjectID == projectID && f.UserID != nil && *f.UserID == "u-1"
		}), 50, "start_time").Return(testutil.NewTestCandidateList("t1", "t2"), nil).Once()
		store.On("FetchDetail", mock.Anything, projectID, "t1").
			Return(testutil.NewTestRawDetail("t1"), nil).Once()
		store.On("FetchDetail", mock.Anything, projectID, "t2").
			Return(testutil.NewTestRawDetail("t2"), nil).Once()

		body, err := json.Marshal(map[string]any{
			"filter": map[string]any{"userId": "u-1"},
			"wait":   true,
		})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/aggregations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var state domain.AggregationState
		respBody, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(respBody, &state))
		require.Len(t, state.Results, 2)
		assert.Equal(t, "t1", state.Results[0].CandidateID)
		assert.Equal(t, "t2", state.Results[1].CandidateID)

		store.AssertExpectations(t)
	})

	t.Run("rejects a filter matching nothing", func(t *testing.T) {
		store := new(MockTraceStore)
		projectID := uuid.New()
		app := setupAggregationsTestApp(store, projectID)

		store.On("ListCandidates", mock.Anything, mock.Anything, 50, "start_time").
			Return(&domain.CandidateList{Traces: []domain.TraceCandidate{}}, nil).Once()

		body, err := json.Marshal(map[string]any{
			"filter": map[string]any{"userId": "nobody"},
		})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/aggregations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		store.AssertNotCalled(t, "FetchDetail", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAggregationsHandler_GetState(t *testing.T) {
	t.Run("returns 404 before any aggregation started", func(t *testing.T) {
		store := new(MockTraceStore)
		app := setupAggregationsTestApp(store, uuid.New())

		req := httptest.NewRequest(http.MethodGet, "/v1/aggregations", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("returns state after aggregation", func(t *testing.T) {
		store := new(MockTraceStore)
		projectID := uuid.New()
		app := setupAggregationsTestApp(store, projectID)

		store.On("FetchDetail", mock.Anything, projectID, "t1").
			Return(testutil.NewTestRawDetail("t1"), nil).Once()

		start := httptest.NewRequest(http.MethodPost, "/v1/aggregations", startBody(t, []string{"t1"}, true))
		start.Header.Set("Content-Type", "application/json")
		_, err := app.Test(start)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/aggregations", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var state domain.AggregationState
		respBody, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(respBody, &state))
		assert.Len(t, state.Succeeded, 1)
	})
}

func TestAggregationsHandler_SelectCandidate(t *testing.T) {
	t.Run("returns normalized detail", func(t *testing.T) {
		store := new(MockTraceStore)
		projectID := uuid.New()
		app := setupAggregationsTestApp(store, projectID)

		store.On("FetchDetail", mock.Anything, projectID, "t1").
			Return(testutil.NewTestRawDetail("t1"), nil).Once()

		start := httptest.NewRequest(http.MethodPost, "/v1/aggregations", startBody(t, []string{"t1"}, true))
		start.Header.Set("Content-Type", "application/json")
		_, err := app.Test(start)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/aggregations/candidates/t1", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var detail domain.TraceDetail
		respBody, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(respBody, &detail))
		assert.Equal(t, "t1", detail.ID)
		assert.Equal(t, "test input", detail.Input)
	})

	t.Run("returns 404 for unknown candidate", func(t *testing.T) {
		store := new(MockTraceStore)
		projectID := uuid.New()
		app := setupAggregationsTestApp(store, projectID)

		store.On("FetchDetail", mock.Anything, projectID, "t1").
			Return(testutil.NewTestRawDetail("t1"), nil).Once()

		start := httptest.NewRequest(http.MethodPost, "/v1/aggregations", startBody(t, []string{"t1"}, true))
		start.Header.Set("Content-Type", "application/json")
		_, err := app.Test(start)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/aggregations/candidates/missing", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

package handler

import (
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

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/service"
	"github.com/evalbridge/evalbridge/internal/testutil"
)

// MockScoreStore mocks score reads
type MockScoreStore struct {
	mock.Mock
}

func (m *MockScoreStore) ListByTrace(ctx context.Context, projectID, traceID string) ([]domain.Score, error) {
	args := m.Called(ctx, projectID, traceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Score), args.Error(1)
}

func setupScoresTestApp(store *MockScoreStore, projectID uuid.UUID) *fiber.App {
	app := fiber.New()
	logger := zap.NewNop()

	scoresHandler := NewScoresHandler(service.NewScoreService(store, logger), logger)

	app.Use(testutil.TestProjectMiddleware(projectID))
	app.Get("/v1/traces/:traceId/scores", scoresHandler.ListByTrace)

	return app
}

func TestScoresHandler_ListByTrace(t *testing.T) {
	t.Run("returns scores for the trace", func(t *testing.T) {
		store := new(MockScoreStore)
		projectID := uuid.New()
		app := setupScoresTestApp(store, projectID)

		scores := []domain.Score{*testutil.NewTestScore(projectID, "t1")}
		store.On("ListByTrace", mock.Anything, projectID.String(), "t1").Return(scores, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/traces/t1/scores", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Scores []domain.Score `json:"scores"`
		}
		respBody, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(respBody, &result))
		require.Len(t, result.Scores, 1)
		assert.Equal(t, "t1", result.Scores[0].TraceID)
		require.NotNil(t, result.Scores[0].Value)
		assert.Equal(t, 0.85, *result.Scores[0].Value)

		store.AssertExpectations(t)
	})

	t.Run("returns an empty list when nothing was recorded", func(t *testing.T) {
		store := new(MockScoreStore)
		projectID := uuid.New()
		app := setupScoresTestApp(store, projectID)

		store.On("ListByTrace", mock.Anything, projectID.String(), "t9").Return([]domain.Score(nil), nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/traces/t9/scores", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		respBody, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"scores":[]}`, string(respBody))
	})
}

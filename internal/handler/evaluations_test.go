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

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/scoring"
	"github.com/evalbridge/evalbridge/internal/service"
	"github.com/evalbridge/evalbridge/internal/testutil"
)

// MockScoringBackend mocks the scoring service client
type MockScoringBackend struct {
	mock.Mock
}

func (m *MockScoringBackend) Preview(ctx context.Context, kind domain.EvaluationKind, req *scoring.PreviewRequest) (*scoring.PreviewResponse, error) {
	args := m.Called(ctx, kind, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scoring.PreviewResponse), args.Error(1)
}

func (m *MockScoringBackend) Execute(ctx context.Context, kind domain.EvaluationKind, sessionID string) (json.RawMessage, error) {
	args := m.Called(ctx, kind, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// MockTemplateStore mocks template persistence for the validate flow
type MockTemplateStore struct {
	mock.Mock
}

func (m *MockTemplateStore) Create(ctx context.Context, tmpl *domain.PromptTemplate) error {
	return m.Called(ctx, tmpl).Error(0)
}

func (m *MockTemplateStore) GetByID(ctx context.Context, projectID, templateID uuid.UUID) (*domain.PromptTemplate, error) {
	args := m.Called(ctx, projectID, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptTemplate), args.Error(1)
}

func (m *MockTemplateStore) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.PromptTemplate, error) {
	args := m.Called(ctx, projectID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptTemplate), args.Error(1)
}

func (m *MockTemplateStore) List(ctx context.Context, filter *domain.PromptTemplateFilter, limit, offset int) (*domain.PromptTemplateList, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptTemplateList), args.Error(1)
}

func (m *MockTemplateStore) Update(ctx context.Context, projectID, templateID uuid.UUID, input *domain.PromptTemplateUpdateInput) error {
	return m.Called(ctx, projectID, templateID, input).Error(0)
}

func (m *MockTemplateStore) Delete(ctx context.Context, projectID, templateID uuid.UUID) error {
	return m.Called(ctx, projectID, templateID).Error(0)
}

type evaluationsTestEnv struct {
	app       *fiber.App
	store     *MockTraceStore
	backend   *MockScoringBackend
	templates *MockTemplateStore
	projectID uuid.UUID
}

func setupEvaluationsTestApp(t *testing.T) *evaluationsTestEnv {
	t.Helper()
	logger := zap.NewNop()
	projectID := uuid.New()

	store := new(MockTraceStore)
	backend := new(MockScoringBackend)
	templates := new(MockTemplateStore)

	aggSvc := newAggregationService(store)
	coordinators := service.NewCoordinatorRegistry(backend, nil, nil, logger)
	evalSvc := service.NewEvaluationService(coordinators, aggSvc, nil, logger)
	templateSvc := service.NewTemplateService(templates, logger)

	aggregationsHandler := NewAggregationsHandler(aggSvc, logger)
	evaluationsHandler := NewEvaluationsHandler(evalSvc, templateSvc, logger)

	app := fiber.New()
	app.Use(testutil.TestFormMiddleware(projectID, "default"))
	app.Post("/v1/aggregations", aggregationsHandler.StartAggregation)
	app.Post("/v1/evaluations/validate", evaluationsHandler.Validate)
	app.Post("/v1/evaluations/execute", evaluationsHandler.Execute)
	app.Get("/v1/evaluations/session", evaluationsHandler.GetSession)
	app.Delete("/v1/evaluations/session", evaluationsHandler.ResetSession)

	return &evaluationsTestEnv{
		app:       app,
		store:     store,
		backend:   backend,
		templates: templates,
		projectID: projectID,
	}
}

// aggregateCandidate settles one candidate so validate has a trace to select
func (env *evaluationsTestEnv) aggregateCandidate(t *testing.T, traceID string) {
	t.Helper()
	env.store.On("FetchDetail", mock.Anything, env.projectID, traceID).
		Return(testutil.NewTestRawDetail(traceID), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/v1/aggregations",
		startBody(t, []string{traceID}, true))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (env *evaluationsTestEnv) postJSON(t *testing.T, path string, payload map[string]any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeSession(t *testing.T, resp *http.Response) *domain.EvaluationSession {
	t.Helper()
	respBody, _ := io.ReadAll(resp.Body)
	var sess domain.EvaluationSession
	require.NoError(t, json.Unmarshal(respBody, &sess))
	return &sess
}

func TestEvaluationsHandler_ValidateThenExecute(t *testing.T) {
	env := setupEvaluationsTestApp(t)
	env.aggregateCandidate(t, "t1")

	env.backend.On("Preview", mock.Anything, domain.KindAccuracy, mock.MatchedBy(func(r *scoring.PreviewRequest) bool {
		return r.Trace != nil && r.Trace.ID == "t1"
	})).Return(&scoring.PreviewResponse{
		SessionID:           "sess-1",
		FilledPromptPreview: "Rate test output",
	}, nil).Once()
	env.backend.On("Execute", mock.Anything, domain.KindAccuracy, "sess-1").
		Return(json.RawMessage(`{"score":0.9}`), nil).Once()

	resp := env.postJSON(t, "/v1/evaluations/validate", map[string]any{
		"kind":              "accuracy",
		"promptTemplate":    "Rate {{output}}",
		"selectedVariables": []string{"output"},
		"traceId":           "t1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	sess := decodeSession(t, resp)
	assert.Equal(t, domain.PhaseValidated, sess.Phase)
	assert.Equal(t, "sess-1", sess.SessionID)
	assert.Equal(t, "Rate test output", sess.PreviewPrompt)

	resp = env.postJSON(t, "/v1/evaluations/execute", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	sess = decodeSession(t, resp)
	assert.Equal(t, domain.PhaseCompleted, sess.Phase)
	assert.JSONEq(t, `{"score":0.9}`, string(sess.Result))

	env.backend.AssertExpectations(t)
}

func TestEvaluationsHandler_ValidateResolvesStoredTemplate(t *testing.T) {
	env := setupEvaluationsTestApp(t)
	env.aggregateCandidate(t, "t1")

	stored := testutil.NewTestTemplate(env.projectID)
	env.templates.On("GetByName", mock.Anything, env.projectID, stored.Name).
		Return(stored, nil).Once()
	env.backend.On("Preview", mock.Anything, domain.KindAccuracy, mock.MatchedBy(func(r *scoring.PreviewRequest) bool {
		return r.PromptTemplate == stored.Template && len(r.SelectedVariables) == 2
	})).Return(&scoring.PreviewResponse{SessionID: "sess-2"}, nil).Once()

	resp := env.postJSON(t, "/v1/evaluations/validate", map[string]any{
		"kind":         "accuracy",
		"templateName": stored.Name,
		"traceId":      "t1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env.templates.AssertExpectations(t)
	env.backend.AssertExpectations(t)
}

func TestEvaluationsHandler_ValidateRejectsUnknownKind(t *testing.T) {
	env := setupEvaluationsTestApp(t)

	resp := env.postJSON(t, "/v1/evaluations/validate", map[string]any{
		"kind":           "toxicity",
		"promptTemplate": "Rate {{output}}",
		"traceId":        "t1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.backend.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluationsHandler_ValidateUnknownCandidate(t *testing.T) {
	env := setupEvaluationsTestApp(t)
	env.aggregateCandidate(t, "t1")

	resp := env.postJSON(t, "/v1/evaluations/validate", map[string]any{
		"kind":              "accuracy",
		"promptTemplate":    "Rate {{output}}",
		"selectedVariables": []string{"output"},
		"traceId":           "missing",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.backend.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluationsHandler_ExecuteWithoutValidate(t *testing.T) {
	env := setupEvaluationsTestApp(t)

	resp := env.postJSON(t, "/v1/evaluations/execute", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEvaluationsHandler_SessionLifecycle(t *testing.T) {
	env := setupEvaluationsTestApp(t)

	// Before any validate the session reports idle.
	req := httptest.NewRequest(http.MethodGet, "/v1/evaluations/session", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	sess := decodeSession(t, resp)
	assert.Equal(t, domain.PhaseIdle, sess.Phase)

	env.aggregateCandidate(t, "t1")
	env.backend.On("Preview", mock.Anything, domain.KindAccuracy, mock.Anything).
		Return(&scoring.PreviewResponse{SessionID: "sess-1"}, nil).Once()

	resp = env.postJSON(t, "/v1/evaluations/validate", map[string]any{
		"kind":              "accuracy",
		"promptTemplate":    "Rate {{output}}",
		"selectedVariables": []string{"output"},
		"traceId":           "t1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Reset drops the validated session back to idle.
	del := httptest.NewRequest(http.MethodDelete, "/v1/evaluations/session", nil)
	resp, err = env.app.Test(del)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/v1/evaluations/session", nil)
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	sess = decodeSession(t, resp)
	assert.Equal(t, domain.PhaseIdle, sess.Phase)
}

package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

// MockAuditLister mocks audit log reads
type MockAuditLister struct {
	mock.Mock
}

func (m *MockAuditLister) List(ctx context.Context, projectID uuid.UUID, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, projectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

func setupAuditTestApp(lister *MockAuditLister, projectID uuid.UUID) *fiber.App {
	app := fiber.New()
	logger := zap.NewNop()

	auditHandler := NewAuditHandler(service.NewAuditService(lister, logger), logger)

	app.Use(testutil.TestProjectMiddleware(projectID))
	app.Get("/v1/audit", auditHandler.List)

	return app
}

func TestAuditHandler_List(t *testing.T) {
	t.Run("returns recent entries", func(t *testing.T) {
		lister := new(MockAuditLister)
		projectID := uuid.New()
		app := setupAuditTestApp(lister, projectID)

		entries := []domain.AuditEntry{
			{
				ID:        uuid.New(),
				ProjectID: projectID,
				FormID:    "default",
				Action:    domain.AuditActionValidate,
				Kind:      string(domain.KindAccuracy),
				TraceID:   "t1",
				Success:   true,
				CreatedAt: time.Now().UTC(),
			},
		}
		lister.On("List", mock.Anything, projectID, 50).Return(entries, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/audit", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Entries []domain.AuditEntry `json:"entries"`
		}
		respBody, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(respBody, &result))
		require.Len(t, result.Entries, 1)
		assert.Equal(t, "t1", result.Entries[0].TraceID)

		lister.AssertExpectations(t)
	})

	t.Run("caps the requested limit", func(t *testing.T) {
		lister := new(MockAuditLister)
		projectID := uuid.New()
		app := setupAuditTestApp(lister, projectID)

		lister.On("List", mock.Anything, projectID, 200).Return([]domain.AuditEntry{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/audit?limit=10000", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		lister.AssertExpectations(t)
	})
}

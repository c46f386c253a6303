package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

// MockTemplateRepository is a mock implementation of TemplateRepository
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) Create(ctx context.Context, tmpl *domain.PromptTemplate) error {
	args := m.Called(ctx, tmpl)
	return args.Error(0)
}

func (m *MockTemplateRepository) GetByID(ctx context.Context, projectID, templateID uuid.UUID) (*domain.PromptTemplate, error) {
	args := m.Called(ctx, projectID, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptTemplate), args.Error(1)
}

func (m *MockTemplateRepository) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.PromptTemplate, error) {
	args := m.Called(ctx, projectID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptTemplate), args.Error(1)
}

func (m *MockTemplateRepository) List(ctx context.Context, filter *domain.PromptTemplateFilter, limit, offset int) (*domain.PromptTemplateList, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptTemplateList), args.Error(1)
}

func (m *MockTemplateRepository) Update(ctx context.Context, projectID, templateID uuid.UUID, input *domain.PromptTemplateUpdateInput) error {
	args := m.Called(ctx, projectID, templateID, input)
	return args.Error(0)
}

func (m *MockTemplateRepository) Delete(ctx context.Context, projectID, templateID uuid.UUID) error {
	args := m.Called(ctx, projectID, templateID)
	return args.Error(0)
}

func TestTemplateService_Create(t *testing.T) {
	repo := new(MockTemplateRepository)
	svc := NewTemplateService(repo, zap.NewNop())
	projectID := uuid.New()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(tmpl *domain.PromptTemplate) bool {
		return tmpl.ProjectID == projectID && tmpl.Kind == domain.KindAccuracy && tmpl.ID != uuid.Nil
	})).Return(nil).Once()

	tmpl, err := svc.Create(context.Background(), projectID, &domain.PromptTemplateInput{
		Name:      "answer-accuracy",
		Kind:      "accuracy",
		Template:  "Rate the answer to {{input}}",
		Variables: []string{"input", "output"},
	})
	require.NoError(t, err)
	assert.Equal(t, "answer-accuracy", tmpl.Name)
	assert.False(t, tmpl.CreatedAt.IsZero())

	repo.AssertExpectations(t)
}

func TestTemplateService_CreateRejectsInvalidInput(t *testing.T) {
	repo := new(MockTemplateRepository)
	svc := NewTemplateService(repo, zap.NewNop())

	_, err := svc.Create(context.Background(), uuid.New(), &domain.PromptTemplateInput{
		Name: "no-template-text",
		Kind: "accuracy",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Create(context.Background(), uuid.New(), &domain.PromptTemplateInput{
		Name:      "bad-kind",
		Kind:      "toxicity",
		Template:  "Rate {{input}}",
		Variables: []string{"input"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))

	repo.AssertNotCalled(t, "Create")
}

func TestTemplateService_UpdateRequiresFields(t *testing.T) {
	repo := new(MockTemplateRepository)
	svc := NewTemplateService(repo, zap.NewNop())

	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), &domain.PromptTemplateUpdateInput{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	repo.AssertNotCalled(t, "Update")
}

func TestTemplateService_ListClampsPagination(t *testing.T) {
	repo := new(MockTemplateRepository)
	svc := NewTemplateService(repo, zap.NewNop())
	filter := &domain.PromptTemplateFilter{ProjectID: uuid.New()}

	repo.On("List", mock.Anything, filter, 50, 0).
		Return(&domain.PromptTemplateList{}, nil).Once()

	_, err := svc.List(context.Background(), filter, -5, -1)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

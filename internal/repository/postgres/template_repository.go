package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/pkg/database"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

// TemplateRepository handles prompt template operations in PostgreSQL
type TemplateRepository struct {
	db *database.PostgresDB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *database.PostgresDB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create creates a new prompt template
func (r *TemplateRepository) Create(ctx context.Context, tmpl *domain.PromptTemplate) error {
	query := `
		INSERT INTO prompt_templates (id, project_id, name, description, kind, template, variables, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		tmpl.ID,
		tmpl.ProjectID,
		tmpl.Name,
		tmpl.Description,
		string(tmpl.Kind),
		tmpl.Template,
		tmpl.Variables,
		tmpl.CreatedBy,
		tmpl.CreatedAt,
		tmpl.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return apperrors.Conflict(fmt.Sprintf("template %q already exists", tmpl.Name))
		}
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, projectID, templateID uuid.UUID) (*domain.PromptTemplate, error) {
	query := `
		SELECT id, project_id, name, description, kind, template, variables, created_by, created_at, updated_at
		FROM prompt_templates
		WHERE project_id = $1 AND id = $2
	`

	var tmpl domain.PromptTemplate
	err := r.db.Pool.QueryRow(ctx, query, projectID, templateID).Scan(
		&tmpl.ID,
		&tmpl.ProjectID,
		&tmpl.Name,
		&tmpl.Description,
		&tmpl.Kind,
		&tmpl.Template,
		&tmpl.Variables,
		&tmpl.CreatedBy,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("template")
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &tmpl, nil
}

// GetByName retrieves a template by project and name
func (r *TemplateRepository) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*domain.PromptTemplate, error) {
	query := `
		SELECT id, project_id, name, description, kind, template, variables, created_by, created_at, updated_at
		FROM prompt_templates
		WHERE project_id = $1 AND name = $2
	`

	var tmpl domain.PromptTemplate
	err := r.db.Pool.QueryRow(ctx, query, projectID, name).Scan(
		&tmpl.ID,
		&tmpl.ProjectID,
		&tmpl.Name,
		&tmpl.Description,
		&tmpl.Kind,
		&tmpl.Template,
		&tmpl.Variables,
		&tmpl.CreatedBy,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("template")
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &tmpl, nil
}

// List retrieves templates with filtering and pagination
func (r *TemplateRepository) List(ctx context.Context, filter *domain.PromptTemplateFilter, limit, offset int) (*domain.PromptTemplateList, error) {
	conditions := []string{"project_id = $1"}
	args := []interface{}{filter.ProjectID}
	argPos := 2

	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argPos))
		args = append(args, string(*filter.Kind))
		argPos++
	}

	if filter.Name != nil {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+*filter.Name+"%")
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT count(*) FROM prompt_templates WHERE %s", whereClause)
	var totalCount int64
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, project_id, name, description, kind, template, variables, created_by, created_at, updated_at
		FROM prompt_templates
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, limit+1, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.PromptTemplate
	for rows.Next() {
		var tmpl domain.PromptTemplate
		if err := rows.Scan(
			&tmpl.ID,
			&tmpl.ProjectID,
			&tmpl.Name,
			&tmpl.Description,
			&tmpl.Kind,
			&tmpl.Template,
			&tmpl.Variables,
			&tmpl.CreatedBy,
			&tmpl.CreatedAt,
			&tmpl.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	hasMore := len(templates) > limit
	if hasMore {
		templates = templates[:limit]
	}

	return &domain.PromptTemplateList{
		Templates:  templates,
		TotalCount: totalCount,
		HasMore:    hasMore,
	}, nil
}

// Update applies a partial update to a template
func (r *TemplateRepository) Update(ctx context.Context, projectID, templateID uuid.UUID, input *domain.PromptTemplateUpdateInput) error {
	sets := []string{"updated_at = now()"}
	args := []interface{}{projectID, templateID}
	argPos := 3

	if input.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argPos))
		args = append(args, *input.Description)
		argPos++
	}

	if input.Template != nil {
		sets = append(sets, fmt.Sprintf("template = $%d", argPos))
		args = append(args, *input.Template)
		argPos++
	}

	if len(input.Variables) > 0 {
		sets = append(sets, fmt.Sprintf("variables = $%d", argPos))
		args = append(args, input.Variables)
	}

	query := fmt.Sprintf(`
		UPDATE prompt_templates
		SET %s
		WHERE project_id = $1 AND id = $2
	`, strings.Join(sets, ", "))

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("template")
	}

	return nil
}

// Delete removes a template
func (r *TemplateRepository) Delete(ctx context.Context, projectID, templateID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx,
		"DELETE FROM prompt_templates WHERE project_id = $1 AND id = $2",
		projectID, templateID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("template")
	}

	return nil
}

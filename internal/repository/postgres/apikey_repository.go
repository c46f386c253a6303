package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evalbridge/evalbridge/internal/domain"
	"github.com/evalbridge/evalbridge/internal/pkg/database"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

// APIKeyRepository handles API key operations in PostgreSQL
type APIKeyRepository struct {
	db *database.PostgresDB
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *database.PostgresDB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// GetByPublicKey retrieves an API key by its public half
func (r *APIKeyRepository) GetByPublicKey(ctx context.Context, publicKey string) (*domain.APIKey, error) {
	query := `
		SELECT id, project_id, name, public_key, secret_key_hash, expires_at, last_used_at, created_at
		FROM api_keys
		WHERE public_key = $1
	`

	var key domain.APIKey
	err := r.db.Pool.QueryRow(ctx, query, publicKey).Scan(
		&key.ID,
		&key.ProjectID,
		&key.Name,
		&key.PublicKey,
		&key.SecretKeyHash,
		&key.ExpiresAt,
		&key.LastUsedAt,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("api key")
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	return &key, nil
}

// TouchLastUsed records a successful use of the key. Best-effort.
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, keyID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		"UPDATE api_keys SET last_used_at = now() WHERE id = $1",
		keyID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents an API key for a project. Keys come in public/secret
// pairs; only the bcrypt hash of the secret is stored.
type APIKey struct {
	ID            uuid.UUID  `json:"id"`
	ProjectID     uuid.UUID  `json:"projectId"`
	Name          string     `json:"name"`
	PublicKey     string     `json:"publicKey"`
	SecretKeyHash string     `json:"-"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt    *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// IsExpired checks if the API key has expired
func (k *APIKey) IsExpired() bool {
	if k.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*k.ExpiresAt)
}

// APIKeyContext represents the authenticated context extracted from an API key
type APIKeyContext struct {
	APIKeyID  uuid.UUID
	ProjectID uuid.UUID
}

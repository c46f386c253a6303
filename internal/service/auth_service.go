package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/domain"
	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

// APIKeyStore is the lookup surface for API key authentication
type APIKeyStore interface {
	GetByPublicKey(ctx context.Context, publicKey string) (*domain.APIKey, error)
	TouchLastUsed(ctx context.Context, keyID uuid.UUID) error
}

// OperatorClaims is the JWT claim set issued to operator tokens
type OperatorClaims struct {
	ProjectID uuid.UUID `json:"projectId"`
	jwt.RegisteredClaims
}

// AuthService verifies API key pairs and operator JWTs
type AuthService struct {
	keys   APIKeyStore
	cfg    config.JWTConfig
	logger *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(keys APIKeyStore, cfg config.JWTConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		keys:   keys,
		cfg:    cfg,
		logger: logger,
	}
}

// VerifyAPIKey checks a public/secret key pair and returns the project
// context it grants.
func (s *AuthService) VerifyAPIKey(ctx context.Context, publicKey, secretKey string) (*domain.APIKeyContext, error) {
	if publicKey == "" || secretKey == "" {
		return nil, apperrors.Unauthorized("missing api key credentials")
	}

	key, err := s.keys.GetByPublicKey(ctx, publicKey)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("invalid api key")
		}
		return nil, err
	}

	if key.IsExpired() {
		return nil, apperrors.Unauthorized("api key expired")
	}

	if bcrypt.CompareHashAndPassword([]byte(key.SecretKeyHash), []byte(secretKey)) != nil {
		return nil, apperrors.Unauthorized("invalid api key")
	}

	if err := s.keys.TouchLastUsed(ctx, key.ID); err != nil {
		s.logger.Warn("failed to update api key usage", zap.Error(err))
	}

	return &domain.APIKeyContext{
		APIKeyID:  key.ID,
		ProjectID: key.ProjectID,
	}, nil
}

// IssueOperatorToken creates a signed JWT scoped to one project
func (s *AuthService) IssueOperatorToken(projectID uuid.UUID, subject string) (string, error) {
	expiry := s.cfg.Expiry
	if expiry <= 0 {
		expiry = time.Duration(s.cfg.ExpiryHours) * time.Hour
	}

	claims := &OperatorClaims{
		ProjectID: projectID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// VerifyOperatorToken parses and validates an operator JWT
func (s *AuthService) VerifyOperatorToken(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || claims.ProjectID == uuid.Nil {
		return nil, apperrors.Unauthorized("invalid token claims")
	}

	return claims, nil
}

// HashSecretKey creates a bcrypt hash of an API secret key
func HashSecretKey(secretKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secretKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret key: %w", err)
	}
	return string(hash), nil
}

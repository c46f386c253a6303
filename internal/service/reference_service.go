package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	apperrors "github.com/evalbridge/evalbridge/internal/pkg/errors"
)

// ReferenceService stores and retrieves reference datasets for quality
// evaluations. Each reference is one JSON object kept in MinIO under the
// project's prefix.
type ReferenceService struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewReferenceService creates a new reference service
func NewReferenceService(client *minio.Client, bucket string, logger *zap.Logger) *ReferenceService {
	return &ReferenceService{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

func referenceObjectPath(projectID uuid.UUID, name string) string {
	return fmt.Sprintf("references/%s/%s.json", projectID, name)
}

// Put stores a reference dataset under the given name, replacing any
// previous version.
func (s *ReferenceService) Put(ctx context.Context, projectID uuid.UUID, name string, record map[string]any) error {
	if s.client == nil {
		return apperrors.Internal("reference storage is not configured")
	}
	if strings.TrimSpace(name) == "" {
		return apperrors.Validation("reference name is required")
	}
	if record == nil {
		return apperrors.Validation("reference record is required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return apperrors.Validation("reference record is not serializable").WithError(err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, referenceObjectPath(projectID, name),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
	if err != nil {
		return apperrors.Internal("failed to store reference").WithError(err)
	}

	s.logger.Info("reference dataset stored",
		zap.String("name", name),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Get retrieves a reference dataset by name
func (s *ReferenceService) Get(ctx context.Context, projectID uuid.UUID, name string) (map[string]any, error) {
	if s.client == nil {
		return nil, apperrors.Internal("reference storage is not configured")
	}

	obj, err := s.client.GetObject(ctx, s.bucket, referenceObjectPath(projectID, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Internal("failed to read reference").WithError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperrors.NotFound("reference")
		}
		return nil, apperrors.Internal("failed to read reference").WithError(err)
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, apperrors.Internal("stored reference is not valid JSON").WithError(err)
	}

	return record, nil
}

// Delete removes a stored reference dataset
func (s *ReferenceService) Delete(ctx context.Context, projectID uuid.UUID, name string) error {
	if s.client == nil {
		return apperrors.Internal("reference storage is not configured")
	}

	if err := s.client.RemoveObject(ctx, s.bucket, referenceObjectPath(projectID, name), minio.RemoveObjectOptions{}); err != nil {
		return apperrors.Internal("failed to delete reference").WithError(err)
	}
	return nil
}

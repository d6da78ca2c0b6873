package repository

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/database"
)

// ArtifactStore copy finished artifacts to object storage
type ArtifactStore interface {
	Mirror(ctx context.Context, sourceID string, artifacts []domain.Artifact) error
}

type minioArtifactStore struct {
	client database.MinIOClientRepo
}

// NewMinIOArtifactStore 將產出檔上傳到 processed/<stem>/ 之下
func NewMinIOArtifactStore(client database.MinIOClientRepo) ArtifactStore {
	return &minioArtifactStore{client: client}
}

// Mirror upload every artifact, keep going on failure and return all errors joined
func (s *minioArtifactStore) Mirror(ctx context.Context, sourceID string, artifacts []domain.Artifact) error {
	var errs []error
	for _, a := range artifacts {
		objectName := ObjectName(sourceID, a.Path)
		if err := s.client.UploadFile(ctx, objectName, a.Path, contentType(a.Path)); err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", objectName, err))
		}
	}
	return errors.Join(errs...)
}

// ObjectName processed/<source stem>/<file name>
func ObjectName(sourceID, filePath string) string {
	stem := strings.TrimSuffix(sourceID, filepath.Ext(sourceID))
	return path.Join("processed", stem, filepath.Base(filePath))
}

func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4":
		return "video/mp4"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

type noopArtifactStore struct{}

// NewNoopArtifactStore store used when minio is disabled
func NewNoopArtifactStore() ArtifactStore {
	return noopArtifactStore{}
}

func (noopArtifactStore) Mirror(context.Context, string, []domain.Artifact) error {
	return nil
}

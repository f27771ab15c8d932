package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"marketplace/config"

	"go.uber.org/zap"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore keeps generated documents addressed by a flat name such as "<order_id>.pdf".
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Get(ctx context.Context, name string) ([]byte, error)
}

const (
	BackendLocal      = "local"
	BackendGCS        = "gcs"
	BackendCloudinary = "cloudinary"
)

// NewBlobStore builds the store selected by STORAGE_BACKEND.
func NewBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (BlobStore, error) {
	logger.Info("Initializing blob store", zap.String("backend", cfg.StorageBackend))
	switch cfg.StorageBackend {
	case BackendLocal, "":
		return NewLocalStore(cfg.StorageLocalDir)
	case BackendGCS:
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	case BackendCloudinary:
		return NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || path.Clean(name) != name || name == "." || name == ".." {
		return fmt.Errorf("invalid blob name %q", name)
	}
	return nil
}

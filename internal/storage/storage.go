package storage

import (
	"context"
	"fmt"

	"github.com/andresuchdata/replenish/internal/config"
)

// ObjectInfo represents metadata for a stored artifact.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the operations document generation needs.
type ObjectStorage interface {
	// UploadObject stores data under key and returns a URL or path that locates it.
	UploadObject(ctx context.Context, key, contentType string, data []byte) (string, error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir)
	case "minio":
		return NewMinioStorage(MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	case "gcs":
		return NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCSCredential)
	case "drive":
		return NewDriveStorage(ctx, cfg.DriveCredential, cfg.DriveFolderID)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

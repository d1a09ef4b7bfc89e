package storage

import (
	"context"
	"fmt"

	"clubfunds/internal/config"
)

// New builds the storage backend selected by configuration.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		path := cfg.LocalPath
		if path == "" {
			path = "./uploads"
		}
		return NewLocalStorage(path)
	case "s3":
		if cfg.S3Bucket == "" || cfg.S3Region == "" {
			return nil, fmt.Errorf("storage: s3 backend requires STORAGE_S3_BUCKET and STORAGE_S3_REGION")
		}
		return NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region)
	default:
		return nil, fmt.Errorf("storage: unknown storage type %q", cfg.Type)
	}
}

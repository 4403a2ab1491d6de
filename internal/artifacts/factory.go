package artifacts

import (
	"context"
	"fmt"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
)

// NewBlobFromConfig builds the blob backend selected by cfg.Backend.
func NewBlobFromConfig(ctx context.Context, cfg config.Artifacts) (Blob, error) {
	switch cfg.Backend {
	case config.BackendFilesystem, "":
		return NewFileBlob(cfg.Dir)
	case config.BackendS3:
		return NewS3Blob(ctx, S3Config{
			Bucket:       cfg.Bucket,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			Prefix:       cfg.Prefix,
			UsePathStyle: cfg.UsePathStyle,
		})
	case config.BackendGCS:
		return newGCSBlob(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported artifact backend: %s", cfg.Backend)
	}
}

//go:build gcp

package artifacts

import (
	"context"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
)

func newGCSBlob(ctx context.Context, cfg config.Artifacts) (Blob, error) {
	return NewGCSBlob(ctx, GCSConfig{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
}

//go:build !gcp

package artifacts

import (
	"context"
	"fmt"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
)

func newGCSBlob(context.Context, config.Artifacts) (Blob, error) {
	return nil, fmt.Errorf("GCS artifact backend is not enabled in this build (use -tags gcp)")
}

package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrBlobNotFound is returned by Blob.Get when nothing is stored under a key.
var ErrBlobNotFound = errors.New("blob not found")

// Blob stores artifact bytes under opaque keys. Put overwrites.
type Blob interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// BlobKey names the bytes of one upload. Keys are content addressed within
// the token so two uploads of different bytes never share a key.
func BlobKey(tokenID int64, sum string) string {
	return fmt.Sprintf("tokens/%d/%s.blob", tokenID, sum)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}
	return nil
}

func joinPrefix(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

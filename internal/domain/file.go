package domain

import (
	"context"
)

// FileRepository stores report objects in an object store.
type FileRepository interface {
	// Upload saves a file under key and returns its access URL
	Upload(ctx context.Context, file []byte, key string, contentType string) (string, error)
}

package storage

import (
	"context"
	"io"
	"time"
)

// UploadOptions describes a single object upload.
type UploadOptions struct {
	ContentType      string
	Size             int64
	ProgressCallback func(done, total int64)
}

// Service stores profile pictures in remote object storage.
type Service interface {
	// Upload writes body under key and returns the stored reference.
	Upload(ctx context.Context, key string, body io.Reader, opts UploadOptions) (string, error)
	// PresignURL returns a time-limited GET URL for key.
	PresignURL(ctx context.Context, key string, expires time.Duration) (string, error)
	// DeletePrefix removes every object whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// Bucket names the bucket references are resolved against.
	Bucket() string
}

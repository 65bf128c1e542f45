package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrTooLarge   = errors.New("object exceeds size limit")
	ErrInvalidKey = errors.New("invalid object key")
)

// StorageInterface defines the interface for dashboard image storage backends.
type StorageInterface interface {
	// SaveFile stores the reader under key and returns the number of bytes written.
	// maxBytes <= 0 means no limit.
	SaveFile(ctx context.Context, key string, reader io.Reader, maxBytes int64) (int64, error)

	// ReadFile opens a stored object. Returns ErrNotFound if there is none.
	ReadFile(ctx context.Context, key string) (io.ReadCloser, error)

	// FileExists checks if a file exists and returns its size
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)

	// DeleteFile removes a file from storage
	DeleteFile(ctx context.Context, key string) error
}

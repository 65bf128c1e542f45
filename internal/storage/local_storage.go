package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vehicle-checkpoint-backend/internal/logger"
)

// LocalStorageService implements image storage on the local filesystem.
type LocalStorageService struct {
	imagesDir string
}

// NewLocalStorageService creates the images directory under dir if needed.
func NewLocalStorageService(dir string) (*LocalStorageService, error) {
	imagesDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}
	return &LocalStorageService{imagesDir: imagesDir}, nil
}

func (m *LocalStorageService) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(m.imagesDir, clean), nil
}

// SaveFile writes to a temporary file first so a failed or oversized upload never
// leaves a partial object behind.
func (m *LocalStorageService) SaveFile(ctx context.Context, key string, reader io.Reader, maxBytes int64) (int64, error) {
	fullPath, err := m.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := fullPath + ".tmp-" + uuid.NewString()
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmpPath)

	src := reader
	if maxBytes > 0 {
		src = io.LimitReader(reader, maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		return 0, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return 0, fmt.Errorf("failed to store file: %w", err)
	}

	logger.Debug("Stored image", "key", key, "bytes", n)
	return n, nil
}

func (m *LocalStorageService) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := m.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return f, nil
}

// FileExists checks if file exists in local filesystem
func (m *LocalStorageService) FileExists(ctx context.Context, key string) (bool, int64, error) {
	fullPath, err := m.path(key)
	if err != nil {
		return false, 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, info.Size(), nil
}

// DeleteFile deletes file from local filesystem
func (m *LocalStorageService) DeleteFile(ctx context.Context, key string) error {
	fullPath, err := m.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Package device provides the server-side capabilities a workflow session needs:
// an exclusive capture device backed by image storage, and the operator's reported position.
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"

	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/storage"
	"vehicle-checkpoint-backend/internal/workflow"
)

var (
	ErrDeviceBusy     = errors.New("capture device already held by this session")
	ErrDeviceReleased = errors.New("capture device has been released")
	ErrEmptyFrame     = errors.New("empty frame")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// StorageCapture hands out capture devices that persist frames to image storage.
// A session holds at most one device at a time.
type StorageCapture struct {
	store    storage.StorageInterface
	maxBytes int64

	mu   sync.Mutex
	held map[string]struct{}
}

func NewStorageCapture(store storage.StorageInterface, maxBytes int64) *StorageCapture {
	return &StorageCapture{
		store:    store,
		maxBytes: maxBytes,
		held:     make(map[string]struct{}),
	}
}

func (c *StorageCapture) Acquire(ctx context.Context, sessionID string) (workflow.CaptureDevice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.held[sessionID]; ok {
		return nil, ErrDeviceBusy
	}
	c.held[sessionID] = struct{}{}
	logger.Debug("Capture device acquired", "session_id", sessionID)
	return &storageDevice{owner: c, sessionID: sessionID}, nil
}

// Held reports how many devices are currently out.
func (c *StorageCapture) Held() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.held)
}

func (c *StorageCapture) release(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, sessionID)
	logger.Debug("Capture device released", "session_id", sessionID)
}

type storageDevice struct {
	owner     *StorageCapture
	sessionID string

	mu       sync.Mutex
	released bool
}

func (d *storageDevice) Capture(ctx context.Context, frame io.Reader, contentType string) (workflow.CapturedImage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return workflow.CapturedImage{}, ErrDeviceReleased
	}
	ext, ok := extensions[contentType]
	if !ok {
		return workflow.CapturedImage{}, fmt.Errorf("unsupported content type %q", contentType)
	}

	var buf bytes.Buffer
	key := path.Join("dashboards", d.sessionID, uuid.NewString()+ext)
	n, err := d.owner.store.SaveFile(ctx, key, io.TeeReader(frame, &buf), d.owner.maxBytes)
	if err != nil {
		return workflow.CapturedImage{}, err
	}
	if n == 0 {
		_ = d.owner.store.DeleteFile(ctx, key)
		return workflow.CapturedImage{}, ErrEmptyFrame
	}
	return workflow.CapturedImage{Key: key, ContentType: contentType, Data: buf.Bytes()}, nil
}

func (d *storageDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil
	}
	d.released = true
	d.owner.release(d.sessionID)
	return nil
}

package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// DiskStore writes thumbnails to {root}/{videoID}{ext}. Writers are
// serialized so a Put never removes the file of a concurrent Put.
type DiskStore struct {
	mu   sync.RWMutex
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) path(videoID, ext string) string {
	return filepath.Join(d.root, filepath.Base(videoID)+ext)
}

func (d *DiskStore) Put(_ context.Context, videoID string, t Thumbnail) error {
	ext, err := Extension(t.MediaType)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := renameio.WriteFile(d.path(videoID, ext), t.Data, 0644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	// a new upload may change the format
	for mt, other := range extensions {
		if mt != t.MediaType {
			_ = os.Remove(d.path(videoID, other))
		}
	}
	return nil
}

func (d *DiskStore) Get(_ context.Context, videoID string) (Thumbnail, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for mt, ext := range extensions {
		data, err := os.ReadFile(d.path(videoID, ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Thumbnail{}, fmt.Errorf("failed to read thumbnail: %w", err)
		}
		return Thumbnail{Data: data, MediaType: mt}, nil
	}
	return Thumbnail{}, ErrNotFound
}

func (d *DiskStore) Delete(_ context.Context, videoID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ext := range extensions {
		if err := os.Remove(d.path(videoID, ext)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete thumbnail: %w", err)
		}
	}
	return nil
}

func (d *DiskStore) Close() error { return nil }

package thumbnail

import (
	"bytes"
	"context"
	"sync"
)

// MemoryStore keeps thumbnails in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Thumbnail
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Thumbnail)}
}

func (m *MemoryStore) Put(_ context.Context, videoID string, t Thumbnail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[videoID] = Thumbnail{Data: bytes.Clone(t.Data), MediaType: t.MediaType}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, videoID string) (Thumbnail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.items[videoID]
	if !ok {
		return Thumbnail{}, ErrNotFound
	}
	return Thumbnail{Data: bytes.Clone(t.Data), MediaType: t.MediaType}, nil
}

func (m *MemoryStore) Delete(_ context.Context, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, videoID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

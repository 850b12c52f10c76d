package storage

import (
	"context"
	"errors"
	"io"
	"sync"
)

// MemoryCoverStore keeps covers in memory. Tests and local runs without
// MinIO use it.
type MemoryCoverStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryCoverStore creates an empty MemoryCoverStore.
func NewMemoryCoverStore() *MemoryCoverStore {
	return &MemoryCoverStore{objects: make(map[string][]byte)}
}

func (m *MemoryCoverStore) PutCover(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *MemoryCoverStore) CoverURL(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", errors.New("cover not found")
	}
	return "memory://" + key, nil
}

func (m *MemoryCoverStore) DeleteCover(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Has reports whether a cover exists, for assertions in tests.
func (m *MemoryCoverStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

package cache

import (
	"context"
	"sync"
)

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (m *MemoryBackend) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.docs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBackend) Write(_ context.Context, name string, data []byte) error {
	cp := append([]byte(nil), data...)
	m.mu.Lock()
	m.docs[name] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.docs, name)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Names(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		if isDocumentName(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (m *MemoryBackend) Location() string { return "memory" }

var _ Backend = (*MemoryBackend)(nil)

package cachestore

import (
	"context"
	"sync"
	"time"
)

// Mock is an in-memory Store for tests.
type Mock struct {
	mu      sync.RWMutex
	entries map[string]Entry

	// Error injection
	GetError    error
	PutError    error
	TouchError  error
	DeleteError error
	ClearError  error
}

// NewMock creates an empty in-memory store.
func NewMock() *Mock {
	return &Mock{entries: make(map[string]Entry)}
}

func (m *Mock) Get(_ context.Context, key string) (Entry, bool, error) {
	if m.GetError != nil {
		return Entry{}, false, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *Mock) Put(_ context.Context, e Entry) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Size = int64(len(e.Blob))
	m.entries[e.Key] = e
	return nil
}

func (m *Mock) Touch(_ context.Context, key string, at time.Time) error {
	if m.TouchError != nil {
		return m.TouchError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.CachedAt = EpochMs(at)
		m.entries[key] = e
	}
	return nil
}

func (m *Mock) Delete(_ context.Context, key string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Mock) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *Mock) Size(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, e := range m.entries {
		total += e.Size
	}
	return total, nil
}

func (m *Mock) Clear(_ context.Context) error {
	if m.ClearError != nil {
		return m.ClearError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return nil
}

func (m *Mock) Close() error {
	return nil
}

package store

import (
	"context"
	"fmt"
	"io"
	"sync"

	"modgate/internal/gate"
)

// MemoryStore is an in-memory implementation of gate.ObjectStore for testing.
type MemoryStore struct {
	name    string
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates a new in-memory object store.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:    name,
		objects: make(map[string][]byte),
	}
}

// Put stores the object under key, replacing any previous object.
func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryStore) Size(ctx context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return 0, fmt.Errorf("object not found: %s", key)
	}
	return int64(len(data)), nil
}

func (s *MemoryStore) URI(key string) string {
	return fmt.Sprintf("memory://%s/%s", s.name, key)
}

// ValidateSetup always succeeds for an in-memory store.
func (s *MemoryStore) ValidateSetup(ctx context.Context) error {
	return nil
}

// Get returns a copy of the object under key, for tests.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Compile-time check that MemoryStore implements gate.ObjectStore interface
var _ gate.ObjectStore = (*MemoryStore)(nil)

package testutil

import (
	"context"
	"io"
	"sync"

	"modgate/internal/gate"
	"modgate/internal/store"
)

// NewTestStore creates an in-memory durable store named "test".
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore("test")
}

// LyingStore wraps an ObjectStore and misbehaves on demand. It is used to
// show that a successful Put is never taken on trust.
type LyingStore struct {
	gate.ObjectStore

	mu sync.Mutex
	// PutErrs are returned by successive Put calls before any Put reaches
	// the wrapped store.
	PutErrs []error
	// DropPuts makes Put report success without storing anything.
	DropPuts bool
	// SizeDelta is added to every size the wrapped store reports.
	SizeDelta int64

	puts int
}

// Compile-time check that LyingStore implements gate.ObjectStore interface
var _ gate.ObjectStore = (*LyingStore)(nil)

// NewLyingStore wraps next. With no fields set it behaves exactly like next.
func NewLyingStore(next gate.ObjectStore) *LyingStore {
	return &LyingStore{ObjectStore: next}
}

func (s *LyingStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	s.mu.Lock()
	s.puts++
	var err error
	if len(s.PutErrs) > 0 {
		err = s.PutErrs[0]
		s.PutErrs = s.PutErrs[1:]
	}
	drop := s.DropPuts
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if drop {
		_, err := io.Copy(io.Discard, r)
		return err
	}
	return s.ObjectStore.Put(ctx, key, r, size)
}

func (s *LyingStore) Size(ctx context.Context, key string) (int64, error) {
	size, err := s.ObjectStore.Size(ctx, key)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return size + s.SizeDelta, nil
}

// Puts returns how many times Put was called.
func (s *LyingStore) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

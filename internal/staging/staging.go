package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"modgate/internal/gate"
)

// stagingArea implements gate.StagingArea using a pluggable stagingStore
// for the storage mechanics. All shared algorithm logic lives here.
type stagingArea struct {
	store   stagingStore
	maxSize int64
	mu      sync.Mutex
}

var _ gate.StagingArea = (*stagingArea)(nil)

// Put stores exactly size bytes from r under contentID.
func (s *stagingArea) Put(contentID string, r io.Reader, size int64) (*gate.StagedBlob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.ContentSize()
	if err != nil {
		return nil, fmt.Errorf("getting current size: %w", err)
	}
	if current+size > s.maxSize {
		return nil, fmt.Errorf("staging area full: would exceed max size of %d bytes", s.maxSize)
	}

	// Read one byte past the declared size so an oversized stream is caught.
	hasher := sha256.New()
	written, err := s.store.Write(contentID, io.TeeReader(io.LimitReader(r, size+1), hasher))
	if err != nil {
		s.store.Remove(contentID)
		return nil, fmt.Errorf("storing content: %w", err)
	}
	if written != size {
		s.store.Remove(contentID)
		return nil, fmt.Errorf("%w: read %d bytes, declared %d", gate.ErrSizeMismatch, written, size)
	}

	return &gate.StagedBlob{
		Path:     s.store.Location(contentID),
		Size:     written,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open returns a reader for the staged blob. The reader is independent of
// the lock, so uploads can stream while other items are staged.
func (s *stagingArea) Open(contentID string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.store.Open(contentID)
	if err != nil {
		return nil, fmt.Errorf("opening staged content %s: %w", contentID, err)
	}
	return r, nil
}

// Remove deletes the staged blob for contentID.
func (s *stagingArea) Remove(contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Remove(contentID)
}

// Count returns the number of staged blobs.
func (s *stagingArea) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Size returns the total size of staged content in bytes.
func (s *stagingArea) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ContentSize()
}

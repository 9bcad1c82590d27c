package staging

import (
	"bytes"
	"fmt"
	"io"
)

// memoryStore keeps staged blobs in memory.
type memoryStore struct {
	blobs map[string][]byte
}

// NewMemoryStagingArea creates a new in-memory staging area.
// maxSize is the maximum total size in bytes; must be positive.
func NewMemoryStagingArea(maxSize int64) *stagingArea {
	return &stagingArea{
		store:   &memoryStore{blobs: make(map[string][]byte)},
		maxSize: maxSize,
	}
}

func (m *memoryStore) Write(contentID string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("reading content: %w", err)
	}
	m.blobs[contentID] = data
	return int64(len(data)), nil
}

func (m *memoryStore) Open(contentID string) (io.ReadCloser, error) {
	data, ok := m.blobs[contentID]
	if !ok {
		return nil, fmt.Errorf("content not found: %s", contentID)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Remove(contentID string) error {
	delete(m.blobs, contentID)
	return nil
}

func (m *memoryStore) Location(contentID string) string {
	return "memory:" + contentID
}

func (m *memoryStore) ContentSize() (int64, error) {
	var total int64
	for _, data := range m.blobs {
		total += int64(len(data))
	}
	return total, nil
}

func (m *memoryStore) Len() (int, error) {
	return len(m.blobs), nil
}

package gate

import (
	"context"
	"io"
)

// ObjectStore is the durable store that holds the canonical copy of content.
// Put is not trusted on its own: callers verify with Exists and Size.
type ObjectStore interface {
	// Put stores size bytes read from r under key. Storing the same key
	// again overwrites it.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Size returns the stored size of the object under key.
	Size(ctx context.Context, key string) (int64, error)

	// URI returns the durable address of key, as recorded on the content item.
	URI(key string) string

	// ValidateSetup verifies that the store is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}

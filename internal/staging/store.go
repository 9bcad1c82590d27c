package staging

import "io"

// Sealer encrypts staged blobs at rest. Seal wraps a writer; the returned
// writer must be closed to finish the ciphertext. Unseal reverses it.
type Sealer interface {
	Seal(w io.Writer) (io.WriteCloser, error)
	Unseal(r io.Reader) (io.Reader, error)
}

// stagingStore abstracts the storage mechanics for a staging area.
// Concurrency is managed by the caller (stagingArea.mu), so stores
// do not need to be safe for concurrent use.
type stagingStore interface {
	// Write stores everything read from r under contentID, replacing any
	// previous blob, and returns the number of plaintext bytes stored.
	Write(contentID string, r io.Reader) (int64, error)

	// Open returns a reader of the plaintext stored under contentID.
	Open(contentID string) (io.ReadCloser, error)

	// Remove removes the blob stored under contentID (best-effort).
	Remove(contentID string) error

	// Location describes where the blob for contentID lives.
	Location(contentID string) string

	// ContentSize returns total bytes of all stored content.
	ContentSize() (int64, error)

	// Len returns the number of stored blobs.
	Len() (int, error)
}

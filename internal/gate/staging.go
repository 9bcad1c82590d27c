package gate

import "io"

// StagingArea holds uploaded bytes between receipt and durable upload.
// Blobs are keyed by content id. The staging area enforces a maximum total
// size so a burst of uploads cannot fill the disk.
type StagingArea interface {
	// Put stores exactly size bytes from r under contentID, computing the
	// checksum as it goes. A short or long stream is rejected and nothing is kept.
	Put(contentID string, r io.Reader, size int64) (*StagedBlob, error)

	// Open returns a reader for the staged blob.
	Open(contentID string) (io.ReadCloser, error)

	// Remove deletes the staged blob. Removing a missing blob is not an error.
	Remove(contentID string) error

	// Count returns the number of staged blobs.
	Count() (int, error)

	// Size returns the total size of staged content in bytes.
	Size() (int64, error)
}

package testutil

import (
	"testing"

	"modgate/internal/encryption"
	"modgate/internal/gate"
	"modgate/internal/staging"
)

const (
	// DefaultStagingMaxSize is the default max size for test staging areas (10MB).
	DefaultStagingMaxSize = 10 * 1024 * 1024
)

// NewTestStagingArea creates a new in-memory staging area for testing.
func NewTestStagingArea() gate.StagingArea {
	return staging.NewMemoryStagingArea(DefaultStagingMaxSize)
}

// NewTestStagingAreaWithSize creates a new in-memory staging area with a custom max size.
func NewTestStagingAreaWithSize(maxSize int64) gate.StagingArea {
	return staging.NewMemoryStagingArea(maxSize)
}

// NewSealedStagingArea creates a filesystem staging area in a temp dir that
// seals blobs with encryption.TestSealer.
func NewSealedStagingArea(t *testing.T) gate.StagingArea {
	t.Helper()
	sa, err := staging.NewFileSystemStagingArea(t.TempDir(), DefaultStagingMaxSize, encryption.NewTestSealer())
	if err != nil {
		t.Fatalf("NewFileSystemStagingArea() error = %v", err)
	}
	return sa
}

package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// filesystemStore keeps staged blobs as files, optionally sealed at rest.
//
// Directory structure:
//
//	<staging_dir>/
//	  files/
//	    <content_id>    (staged content, sealed when a Sealer is set)
type filesystemStore struct {
	filesDir string
	sealer   Sealer
}

// NewFileSystemStagingArea creates a new filesystem-based staging area.
// maxSize is the maximum total size in bytes; must be positive.
// sealer may be nil to store blobs in plaintext.
func NewFileSystemStagingArea(stagingDir string, maxSize int64, sealer Sealer) (*stagingArea, error) {
	filesDir := filepath.Join(stagingDir, "files")
	if err := os.MkdirAll(filesDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	return &stagingArea{
		store:   &filesystemStore{filesDir: filesDir, sealer: sealer},
		maxSize: maxSize,
	}, nil
}

func (f *filesystemStore) path(contentID string) string {
	return filepath.Join(f.filesDir, contentID)
}

// Write streams to a temp file and renames it into place, so a crash never
// leaves a partial blob under the content id.
func (f *filesystemStore) Write(contentID string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(f.filesDir, ".tmp-"+contentID+"-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	var w io.WriteCloser = tmp
	if f.sealer != nil {
		if w, err = f.sealer.Seal(tmp); err != nil {
			return 0, fmt.Errorf("sealing content: %w", err)
		}
	}

	written, err := io.Copy(w, r)
	if err != nil {
		return 0, fmt.Errorf("writing content: %w", err)
	}
	if f.sealer != nil {
		if err := w.Close(); err != nil {
			return 0, fmt.Errorf("finalizing sealed content: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("syncing content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path(contentID)); err != nil {
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	ok = true
	return written, nil
}

func (f *filesystemStore) Open(contentID string) (io.ReadCloser, error) {
	file, err := os.Open(f.path(contentID))
	if err != nil {
		return nil, fmt.Errorf("opening content: %w", err)
	}
	if f.sealer == nil {
		return file, nil
	}
	plain, err := f.sealer.Unseal(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("unsealing content: %w", err)
	}
	return struct {
		io.Reader
		io.Closer
	}{plain, file}, nil
}

func (f *filesystemStore) Remove(contentID string) error {
	if err := os.Remove(f.path(contentID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing content: %w", err)
	}
	return nil
}

func (f *filesystemStore) Location(contentID string) string {
	return f.path(contentID)
}

// ContentSize sums the on-disk size of staged blobs. Sealed blobs carry a
// small per-file overhead on top of the plaintext.
func (f *filesystemStore) ContentSize() (int64, error) {
	entries, err := f.blobs()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return 0, fmt.Errorf("stat staged content: %w", err)
		}
		total += info.Size()
	}
	return total, nil
}

func (f *filesystemStore) Len() (int, error) {
	entries, err := f.blobs()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// blobs lists finished blobs, skipping in-progress temp files.
func (f *filesystemStore) blobs() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(f.filesDir)
	if err != nil {
		return nil, fmt.Errorf("reading staging directory: %w", err)
	}
	out := entries[:0]
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

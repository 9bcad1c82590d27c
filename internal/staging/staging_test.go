package staging

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modgate/internal/config"
	"modgate/internal/gate"
)

// xorSealer flips every byte so sealed files differ from plaintext.
type xorSealer struct{}

func (xorSealer) Seal(w io.Writer) (io.WriteCloser, error) {
	return xorWriter{w}, nil
}

func (xorSealer) Unseal(r io.Reader) (io.Reader, error) {
	return xorReader{r}, nil
}

type xorWriter struct{ w io.Writer }

func (x xorWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	for i, b := range p {
		buf[i] = b ^ 0xff
	}
	return x.w.Write(buf)
}

func (xorWriter) Close() error { return nil }

type xorReader struct{ r io.Reader }

func (x xorReader) Read(p []byte) (int, error) {
	n, err := x.r.Read(p)
	for i := 0; i < n; i++ {
		p[i] ^= 0xff
	}
	return n, err
}

// helpers

func newAreas(t *testing.T) map[string]*stagingArea {
	t.Helper()
	fsArea, err := NewFileSystemStagingArea(t.TempDir(), 1<<20, nil)
	if err != nil {
		t.Fatalf("NewFileSystemStagingArea() error = %v", err)
	}
	sealed, err := NewFileSystemStagingArea(t.TempDir(), 1<<20, xorSealer{})
	if err != nil {
		t.Fatalf("NewFileSystemStagingArea() error = %v", err)
	}
	return map[string]*stagingArea{
		"memory":     NewMemoryStagingArea(1 << 20),
		"filesystem": fsArea,
		"sealed":     sealed,
	}
}

func put(t *testing.T, sa *stagingArea, id string, content []byte) *gate.StagedBlob {
	t.Helper()
	blob, err := sa.Put(id, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("Put(%s) error = %v", id, err)
	}
	return blob
}

func readAll(t *testing.T, sa *stagingArea, id string) []byte {
	t.Helper()
	r, err := sa.Open(id)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", id, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll(%s) error = %v", id, err)
	}
	return data
}

// Tests

func TestStagingArea_Put(t *testing.T) {
	for name, sa := range newAreas(t) {
		t.Run(name, func(t *testing.T) {
			content := []byte("hello video")
			blob := put(t, sa, "clip-1", content)

			if blob.Size != int64(len(content)) {
				t.Errorf("blob.Size = %d, want %d", blob.Size, len(content))
			}
			// sha256("hello video")
			if len(blob.Checksum) != 64 {
				t.Errorf("blob.Checksum = %q, want 64 hex chars", blob.Checksum)
			}
			if blob.Path == "" {
				t.Error("blob.Path is empty")
			}

			if got := readAll(t, sa, "clip-1"); !bytes.Equal(got, content) {
				t.Errorf("Open() content = %q, want %q", got, content)
			}

			count, err := sa.Count()
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if count != 1 {
				t.Errorf("Count() = %d, want 1", count)
			}
		})
	}
}

func TestStagingArea_SizeMismatch(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		declared int64
	}{
		{"short stream", "abc", 10},
		{"long stream", "abcdefghijkl", 4},
	}

	for name, sa := range newAreas(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				_, err := sa.Put("bad", strings.NewReader(tt.content), tt.declared)
				if !errors.Is(err, gate.ErrSizeMismatch) {
					t.Fatalf("Put() error = %v, want ErrSizeMismatch", err)
				}
				count, _ := sa.Count()
				if count != 0 {
					t.Errorf("Count() after mismatch = %d, want 0", count)
				}
			})
		}
	}
}

func TestStagingArea_Remove(t *testing.T) {
	for name, sa := range newAreas(t) {
		t.Run(name, func(t *testing.T) {
			put(t, sa, "clip-1", []byte("data"))

			if err := sa.Remove("clip-1"); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if err := sa.Remove("clip-1"); err != nil {
				t.Errorf("second Remove() error = %v, want nil", err)
			}
			if _, err := sa.Open("clip-1"); err == nil {
				t.Error("Open() after Remove expected error")
			}
			size, _ := sa.Size()
			if size != 0 {
				t.Errorf("Size() after Remove = %d, want 0", size)
			}
		})
	}
}

func TestStagingArea_SizeLimit(t *testing.T) {
	sa := NewMemoryStagingArea(10)
	put(t, sa, "small", []byte("hi"))

	_, err := sa.Put("big", strings.NewReader("this is way too big"), 19)
	if err == nil {
		t.Fatal("expected error when exceeding size limit")
	}
	if !strings.Contains(err.Error(), "staging area full") {
		t.Errorf("error = %v, want 'staging area full'", err)
	}
}

func TestFileSystemStagingArea_Sealed(t *testing.T) {
	dir := t.TempDir()
	sa, err := NewFileSystemStagingArea(dir, 1<<20, xorSealer{})
	if err != nil {
		t.Fatalf("NewFileSystemStagingArea() error = %v", err)
	}
	content := []byte("plaintext upload")
	put(t, sa, "clip-1", content)

	raw, err := os.ReadFile(filepath.Join(dir, "files", "clip-1"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if bytes.Equal(raw, content) {
		t.Error("staged file is stored in plaintext")
	}
	if got := readAll(t, sa, "clip-1"); !bytes.Equal(got, content) {
		t.Errorf("Open() content = %q, want %q", got, content)
	}
}

func TestFileSystemStagingArea_IgnoresTempFiles(t *testing.T) {
	dir := t.TempDir()
	sa, err := NewFileSystemStagingArea(dir, 1<<20, nil)
	if err != nil {
		t.Fatalf("NewFileSystemStagingArea() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "files", ".tmp-leftover-1"), []byte("junk"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	count, err := sa.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
}

func TestNewStagingAreaFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StagingConfig
		wantErr bool
	}{
		{"memory", config.StagingConfig{Type: "memory"}, false},
		{"filesystem", config.StagingConfig{Type: "filesystem", StagingDir: t.TempDir()}, false},
		{"filesystem without dir", config.StagingConfig{Type: "filesystem"}, true},
		{"unknown", config.StagingConfig{Type: "tape"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa, err := NewStagingAreaFromConfig(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStagingAreaFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && sa == nil {
				t.Error("NewStagingAreaFromConfig() returned nil")
			}
		})
	}
}

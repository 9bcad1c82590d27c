package encryption

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"modgate/internal/config"
)

func newTestAgeSealer(t *testing.T) *AgeSealer {
	t.Helper()
	return NewAgeSealer(filepath.Join(t.TempDir(), "keys", "staging.key"))
}

func seal(t *testing.T, s interface {
	Seal(io.Writer) (io.WriteCloser, error)
}, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := s.Seal(&buf)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestAgeSealer_IsConfigured_BeforeSetup(t *testing.T) {
	t.Parallel()
	s := newTestAgeSealer(t)
	if s.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
}

func TestAgeSealer_Setup(t *testing.T) {
	t.Parallel()
	s := newTestAgeSealer(t)

	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !s.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}

	info, err := os.Stat(s.keyPath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("key file mode = %o, want 600", perm)
	}

	if err := s.Setup(); err == nil {
		t.Error("second Setup() should refuse to overwrite the key")
	}
}

func TestAgeSealer_SealUnsealRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 100000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestAgeSealer(t)
			if err := s.Setup(); err != nil {
				t.Fatalf("Setup() error = %v", err)
			}

			sealed := seal(t, s, tt.input)
			if len(tt.input) > 0 && bytes.Contains(sealed, tt.input) {
				t.Error("sealed output contains the plaintext")
			}

			// A fresh sealer reading the same key must be able to open it.
			r, err := NewAgeSealer(s.keyPath).Unseal(bytes.NewReader(sealed))
			if err != nil {
				t.Fatalf("Unseal() error = %v", err)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if !bytes.Equal(got, tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", len(got), len(tt.input))
			}
		})
	}
}

func TestAgeSealer_UnsealWithOtherKey(t *testing.T) {
	t.Parallel()

	a := newTestAgeSealer(t)
	b := newTestAgeSealer(t)
	for _, s := range []*AgeSealer{a, b} {
		if err := s.Setup(); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
	}

	sealed := seal(t, a, []byte("secret"))
	if _, err := b.Unseal(bytes.NewReader(sealed)); err == nil {
		t.Error("Unseal() with a different key should return error")
	}
}

func TestAgeSealer_SealBeforeSetup(t *testing.T) {
	t.Parallel()

	s := newTestAgeSealer(t)
	var buf bytes.Buffer
	if _, err := s.Seal(&buf); err == nil {
		t.Error("Seal() before Setup should return error")
	}
}

func TestNewSealerFromConfig(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		got, err := NewSealerFromConfig(config.StagingConfig{Encrypt: false})
		if err != nil {
			t.Fatalf("NewSealerFromConfig() error = %v", err)
		}
		if got != nil {
			t.Errorf("NewSealerFromConfig() = %v, want nil", got)
		}
	})

	t.Run("generates missing key", func(t *testing.T) {
		keyPath := filepath.Join(t.TempDir(), "staging.key")
		got, err := NewSealerFromConfig(config.StagingConfig{Encrypt: true, KeyPath: keyPath})
		if err != nil {
			t.Fatalf("NewSealerFromConfig() error = %v", err)
		}
		if got == nil {
			t.Fatal("NewSealerFromConfig() returned nil")
		}
		if _, err := os.Stat(keyPath); err != nil {
			t.Errorf("key not generated: %v", err)
		}
	})

	t.Run("requires key path", func(t *testing.T) {
		if _, err := NewSealerFromConfig(config.StagingConfig{Encrypt: true}); err == nil {
			t.Error("NewSealerFromConfig() expected error without key_path")
		}
	})
}

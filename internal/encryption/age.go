package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filippo.io/age"

	"modgate/internal/staging"
)

// AgeSealer seals staged blobs with filippo.io/age using an X25519 identity.
// The identity is kept unencrypted at keyPath with mode 0600 so a
// long-running service can open staged blobs without a passphrase prompt.
type AgeSealer struct {
	keyPath string

	once     sync.Once
	identity *age.X25519Identity
	loadErr  error
}

var _ staging.Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates a sealer backed by the identity at keyPath.
func NewAgeSealer(keyPath string) *AgeSealer {
	return &AgeSealer{keyPath: keyPath}
}

// Setup generates a new X25519 identity and writes it to keyPath.
// It refuses to overwrite an existing key, which would orphan staged blobs.
func (s *AgeSealer) Setup() error {
	if s.IsConfigured() {
		return fmt.Errorf("staging key already exists at %s", s.keyPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating staging key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.keyPath), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# created: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "# public key: %s\n", identity.Recipient())
	fmt.Fprintf(&buf, "%s\n", identity)

	if err := os.WriteFile(s.keyPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing staging key: %w", err)
	}
	return nil
}

// IsConfigured returns true if the key file exists.
func (s *AgeSealer) IsConfigured() bool {
	_, err := os.Stat(s.keyPath)
	return err == nil
}

// Seal returns a writer that encrypts everything written to it into w.
// The caller must Close it to flush the final chunk.
func (s *AgeSealer) Seal(w io.Writer) (io.WriteCloser, error) {
	identity, err := s.load()
	if err != nil {
		return nil, err
	}
	sealed, err := age.Encrypt(w, identity.Recipient())
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	return sealed, nil
}

// Unseal returns a reader of the plaintext sealed in r.
func (s *AgeSealer) Unseal(r io.Reader) (io.Reader, error) {
	identity, err := s.load()
	if err != nil {
		return nil, err
	}
	plain, err := age.Decrypt(r, identity)
	if err != nil {
		return nil, fmt.Errorf("creating decrypted reader: %w", err)
	}
	return plain, nil
}

// load reads the identity once and caches it.
func (s *AgeSealer) load() (*age.X25519Identity, error) {
	s.once.Do(func() {
		data, err := os.ReadFile(s.keyPath)
		if err != nil {
			s.loadErr = fmt.Errorf("reading staging key: %w", err)
			return
		}
		identities, err := age.ParseIdentities(bytes.NewReader(data))
		if err != nil {
			s.loadErr = fmt.Errorf("parsing staging key: %w", err)
			return
		}
		for _, id := range identities {
			if x, ok := id.(*age.X25519Identity); ok {
				s.identity = x
				return
			}
		}
		s.loadErr = fmt.Errorf("no X25519 identity found in %s", s.keyPath)
	})
	return s.identity, s.loadErr
}

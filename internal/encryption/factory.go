package encryption

import (
	"fmt"

	"modgate/internal/config"
	"modgate/internal/staging"
)

// NewSealerFromConfig returns the sealer for staged blobs, or nil when
// staging encryption is off. A missing age key is generated on first use.
func NewSealerFromConfig(cfg config.StagingConfig) (staging.Sealer, error) {
	if !cfg.Encrypt {
		return nil, nil
	}
	if cfg.KeyPath == "" {
		return nil, fmt.Errorf("staging encryption requires key_path to be set")
	}

	sealer := NewAgeSealer(cfg.KeyPath)
	if !sealer.IsConfigured() {
		if err := sealer.Setup(); err != nil {
			return nil, err
		}
	}
	return sealer, nil
}

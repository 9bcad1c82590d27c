package staging

import (
	"fmt"

	"modgate/internal/config"
	"modgate/internal/gate"
)

// DefaultMaxSize is the default maximum staging area size (8GB).
const DefaultMaxSize int64 = 8 << 30

// NewStagingAreaFromConfig creates a StagingArea implementation based on the config type.
// sealer may be nil; it only applies to filesystem staging.
func NewStagingAreaFromConfig(cfg config.StagingConfig, sealer Sealer) (gate.StagingArea, error) {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	switch cfg.Type {
	case "memory":
		return NewMemoryStagingArea(maxSize), nil
	case "filesystem":
		if cfg.StagingDir == "" {
			return nil, fmt.Errorf("filesystem staging area requires staging_dir to be set")
		}
		return NewFileSystemStagingArea(cfg.StagingDir, maxSize, sealer)
	default:
		return nil, fmt.Errorf("unknown staging area type: %s", cfg.Type)
	}
}

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for modgate.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Database DatabaseConfig `toml:"database"`
	Staging  StagingConfig  `toml:"staging"`
	Store    StoreConfig    `toml:"store"`
	Analysis AnalysisConfig `toml:"analysis"`
	Delivery DeliveryConfig `toml:"delivery"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Policy   PolicyConfig   `toml:"policy"`
	Publish  PublishConfig  `toml:"publish"`
	Sweeper  SweeperConfig  `toml:"sweeper"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// Duration is a time.Duration written as a string such as "90s" or "15m".
type Duration struct {
	time.Duration
}

// NewDuration wraps d.
func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// StagingConfig represents configuration for the staging area.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StagingConfig struct {
	Type       string `toml:"type"`                  // "memory" or "filesystem"
	StagingDir string `toml:"staging_dir,omitempty"` // only used for type=filesystem
	MaxSize    int64  `toml:"max_size"`              // max total size in bytes; must be positive

	// Encrypt seals staged blobs at rest with an age identity kept at KeyPath.
	Encrypt bool   `toml:"encrypt"`
	KeyPath string `toml:"key_path,omitempty"`
}

// StoreConfig represents configuration for the durable object store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// AnalysisConfig configures the automated analysis service client.
type AnalysisConfig struct {
	Type           string   `toml:"type"` // "http"
	BaseURL        string   `toml:"base_url"`
	APIKey         string   `toml:"api_key,omitempty"`
	RequestTimeout Duration `toml:"request_timeout"`
	PollInterval   Duration `toml:"poll_interval"`

	// The circuit breaker opens after BreakerFailures consecutive failures
	// and stays open for BreakerTimeout.
	BreakerFailures uint32   `toml:"breaker_failures"`
	BreakerTimeout  Duration `toml:"breaker_timeout"`
}

// DeliveryConfig configures the delivery network client.
type DeliveryConfig struct {
	Type            string   `toml:"type"` // "http"
	BaseURL         string   `toml:"base_url"`
	CDNBaseURL      string   `toml:"cdn_base_url"`
	APIKey          string   `toml:"api_key,omitempty"`
	RequestTimeout  Duration `toml:"request_timeout"`
	BreakerFailures uint32   `toml:"breaker_failures"`
	BreakerTimeout  Duration `toml:"breaker_timeout"`
}

// PipelineConfig bounds work and retries across the pipeline.
type PipelineConfig struct {
	Concurrency    int      `toml:"concurrency"`
	MaxUploadSize  int64    `toml:"max_upload_size"`
	MaxDuration    Duration `toml:"max_duration"`
	MaxAttempts    int      `toml:"max_attempts"`
	AttemptTimeout Duration `toml:"attempt_timeout"`
	InitialBackoff Duration `toml:"initial_backoff"`
	MaxBackoff     Duration `toml:"max_backoff"`
	AnalysisWait   Duration `toml:"analysis_wait"`
}

// PolicyConfig holds the moderation policy knobs.
type PolicyConfig struct {
	// Denylist entries are words, phrases, or "re:" patterns for one word.
	Denylist []string `toml:"denylist"`
	// Allowlist words never match a single-word entry or a pattern. They do
	// not break multi-word phrases.
	Allowlist []string `toml:"allowlist"`

	GestureElevationDelta float64 `toml:"gesture_elevation_delta"`
	GestureMinFrames      int     `toml:"gesture_min_frames"`
	MinLandmarkConfidence float64 `toml:"min_landmark_confidence"`
}

// PublishConfig bounds asset creation and readiness polling.
type PublishConfig struct {
	MaxAttempts  int      `toml:"max_attempts"`
	PollAttempts int      `toml:"poll_attempts"`
	PollInterval Duration `toml:"poll_interval"`
}

// SweeperConfig controls recovery of stuck items.
type SweeperConfig struct {
	Interval     Duration `toml:"interval"`
	GracePeriod  Duration `toml:"grace_period"`
	StallTimeout Duration `toml:"stall_timeout"`
	BatchSize    int      `toml:"batch_size"`
}

// LoggingConfig selects log verbosity and optional error reporting.
type LoggingConfig struct {
	Level       string `toml:"level"` // "debug", "info", "warn" or "error"
	SentryDSN   string `toml:"sentry_dsn,omitempty"`
	Environment string `toml:"environment,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint served by long-running commands.
type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr,omitempty"`
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Staging: StagingConfig{
			Type:       "filesystem",
			StagingDir: filepath.Join(baseDir, "staging"),
			MaxSize:    8 << 30,
			KeyPath:    filepath.Join(baseDir, "keys", "staging.key"),
		},
		Store: StoreConfig{
			Type:   "filesystem",
			Name:   "local",
			FSRoot: filepath.Join(baseDir, "store"),
		},
		Analysis: AnalysisConfig{
			Type:            "http",
			BaseURL:         "http://localhost:8081",
			RequestTimeout:  NewDuration(30 * time.Second),
			PollInterval:    NewDuration(2 * time.Second),
			BreakerFailures: 5,
			BreakerTimeout:  NewDuration(time.Minute),
		},
		Delivery: DeliveryConfig{
			Type:            "http",
			BaseURL:         "http://localhost:8082",
			CDNBaseURL:      "http://localhost:8082/cdn",
			RequestTimeout:  NewDuration(30 * time.Second),
			BreakerFailures: 5,
			BreakerTimeout:  NewDuration(time.Minute),
		},
		Pipeline: PipelineConfig{
			Concurrency:    4,
			MaxUploadSize:  2 << 30,
			MaxDuration:    NewDuration(10 * time.Minute),
			MaxAttempts:    4,
			AttemptTimeout: NewDuration(2 * time.Minute),
			InitialBackoff: NewDuration(2 * time.Second),
			MaxBackoff:     NewDuration(30 * time.Second),
			AnalysisWait:   NewDuration(90 * time.Second),
		},
		Policy: PolicyConfig{
			GestureElevationDelta: 0.05,
			GestureMinFrames:      3,
			MinLandmarkConfidence: 0.5,
		},
		Publish: PublishConfig{
			MaxAttempts:  4,
			PollAttempts: 20,
			PollInterval: NewDuration(5 * time.Second),
		},
		Sweeper: SweeperConfig{
			Interval:     NewDuration(5 * time.Minute),
			GracePeriod:  NewDuration(15 * time.Minute),
			StallTimeout: NewDuration(6 * time.Hour),
			BatchSize:    100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold API keys and storage credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := NewConfig("/srv/modgate")
	original.Store = StoreConfig{
		Type:       "s3",
		Name:       "primary",
		S3Bucket:   "uploads",
		S3Prefix:   "moderated",
		S3Region:   "us-east-1",
		S3Endpoint: "http://localhost:9000",
	}
	original.Staging.Encrypt = true
	original.Policy.Denylist = []string{"badword", "re:f+o+o+"}
	original.Policy.Allowlist = []string{"scunthorpe"}
	original.Sweeper.GracePeriod = NewDuration(42 * time.Second)

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Store != original.Store {
		t.Errorf("Store = %+v, want %+v", got.Store, original.Store)
	}
	if !got.Staging.Encrypt {
		t.Error("Staging.Encrypt = false, want true")
	}
	if len(got.Policy.Denylist) != 2 || got.Policy.Denylist[1] != "re:f+o+o+" {
		t.Errorf("Policy.Denylist = %v, want %v", got.Policy.Denylist, original.Policy.Denylist)
	}
	if got.Sweeper.GracePeriod.Duration != 42*time.Second {
		t.Errorf("Sweeper.GracePeriod = %v, want %v", got.Sweeper.GracePeriod, 42*time.Second)
	}
	if got.Pipeline.AttemptTimeout != original.Pipeline.AttemptTimeout {
		t.Errorf("Pipeline.AttemptTimeout = %v, want %v", got.Pipeline.AttemptTimeout, original.Pipeline.AttemptTimeout)
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: `d = "90s"`, want: 90 * time.Second},
		{name: "compound", input: `d = "1h30m"`, want: 90 * time.Minute},
		{name: "invalid", input: `d = "soon"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				D Duration `toml:"d"`
			}
			_, err := toml.Decode(tt.input, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.D.Duration != tt.want {
				t.Errorf("Duration = %v, want %v", got.D.Duration, tt.want)
			}
		})
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/modgate")

	if cfg.BaseDir != "/data/modgate" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/modgate")
	}
	if cfg.LogDir != "/data/modgate/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/modgate/log")
	}
	if cfg.Database.DataDir != "/data/modgate/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/modgate/db")
	}
	if cfg.Staging.KeyPath != "/data/modgate/keys/staging.key" {
		t.Errorf("Staging.KeyPath = %q, want %q", cfg.Staging.KeyPath, "/data/modgate/keys/staging.key")
	}
	if cfg.Policy.GestureMinFrames != 3 {
		t.Errorf("Policy.GestureMinFrames = %d, want 3", cfg.Policy.GestureMinFrames)
	}
	if cfg.Sweeper.GracePeriod.Duration <= 0 || cfg.Sweeper.StallTimeout.Duration <= cfg.Sweeper.GracePeriod.Duration {
		t.Errorf("Sweeper = %+v, want 0 < grace period < stall timeout", cfg.Sweeper)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "modgate.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("config file mode = %o, want 600", perm)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "modgate.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "modgate.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
		if got.Pipeline.MaxDuration.Duration != 10*time.Minute {
			t.Errorf("Pipeline.MaxDuration = %v, want %v", got.Pipeline.MaxDuration, 10*time.Minute)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/modgate.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})

	t.Run("returns error for malformed duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "modgate.toml")
		if err := os.WriteFile(path, []byte("[sweeper]\ninterval = \"often\"\n"), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		_, err := ReadFromFile(path)
		if err == nil {
			t.Fatal("ReadFromFile() expected error for malformed duration")
		}
	})
}

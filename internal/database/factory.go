package database

import (
	"fmt"
	"os"
	"path/filepath"

	"modgate/internal/config"
	"modgate/internal/gate"
)

// DatabaseFileName is the name of the SQLite file inside data_dir.
const DatabaseFileName = "modgate.db"

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
// A file database must already be migrated; an in-memory database is
// migrated on open since it starts empty every time.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (gate.Database, error) {
	switch cfg.Type {
	case "sqlite":
		db, err := OpenFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		if err := db.CheckMigrations(); err != nil {
			db.Close()
			return nil, fmt.Errorf("database schema check failed (run 'modgate migrate'): %w", err)
		}
		return db, nil
	case "memory":
		db, err := NewSQLiteDatabase(":memory:")
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// OpenFromConfig opens the SQLite file named by cfg without checking the
// schema version. Used by the migrate and backup commands.
func OpenFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	if cfg.Type != "sqlite" {
		return nil, fmt.Errorf("database type %q has no file to open", cfg.Type)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir required for sqlite database")
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data_dir: %w", err)
	}
	return NewSQLiteDatabase(filepath.Join(cfg.DataDir, DatabaseFileName))
}

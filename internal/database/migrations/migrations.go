package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// RequiredTables are the tables the pipeline reads and writes. A database
// whose version looks current but lacks one of them was edited by hand.
var RequiredTables = []string{"content_items", "moderation_decisions"}

// Status describes the schema of a metadata database against the migrations
// compiled into this binary.
type Status struct {
	// Versioned is false for a database that has never been migrated.
	Versioned     bool
	Version       uint
	Latest        uint
	Dirty         bool
	MissingTables []string
}

// Current reports whether the database can be used as is.
func (s Status) Current() bool {
	return s.Err() == nil
}

// Err describes why the database cannot be used, or returns nil.
func (s Status) Err() error {
	switch {
	case !s.Versioned:
		return fmt.Errorf("database has no schema version (needs migration)")
	case s.Dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", s.Version)
	case s.Version < s.Latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			s.Version, s.Latest, s.Latest-s.Version)
	case s.Version > s.Latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			s.Version, s.Latest)
	case len(s.MissingTables) > 0:
		return fmt.Errorf("database at version %d is missing tables: %s", s.Version, strings.Join(s.MissingTables, ", "))
	}
	return nil
}

func (s Status) String() string {
	if !s.Versioned {
		return fmt.Sprintf("unversioned (latest %d)", s.Latest)
	}
	out := fmt.Sprintf("version %d of %d", s.Version, s.Latest)
	if s.Dirty {
		out += ", dirty"
	}
	return out
}

// ReadStatus inspects db without changing it.
func ReadStatus(db *sql.DB) (Status, error) {
	var st Status

	latest, err := latestVersion()
	if err != nil {
		return st, fmt.Errorf("failed to determine latest version: %w", err)
	}
	st.Latest = latest

	// m is not closed: closing it would close db, which the caller owns.
	m, err := newMigrate(db)
	if err != nil {
		return st, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return st, nil
	case err != nil:
		return st, fmt.Errorf("failed to get database version: %w", err)
	}
	st.Versioned = true
	st.Version = version
	st.Dirty = dirty

	missing, err := missingTables(db)
	if err != nil {
		return st, err
	}
	st.MissingTables = missing
	return st, nil
}

// CheckDBMigrationStatus returns nil when db is at the latest version and has
// every required table.
func CheckDBMigrationStatus(db *sql.DB) error {
	st, err := ReadStatus(db)
	if err != nil {
		return err
	}
	return st.Err()
}

// MigrateUp applies pending migrations and returns the resulting status.
// An up-to-date database is left alone.
func MigrateUp(db *sql.DB) (Status, error) {
	m, err := newMigrate(db)
	if err != nil {
		return Status{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Status{}, fmt.Errorf("migration failed: %w", err)
	}

	st, err := ReadStatus(db)
	if err != nil {
		return st, err
	}
	return st, st.Err()
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()
	return lastVersion(src)
}

// lastVersion walks src from its first migration to its last.
func lastVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if errors.Is(err, os.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, err
		}
		version = next
	}
}

func missingTables(db *sql.DB) ([]string, error) {
	var missing []string
	for _, table := range RequiredTables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			missing = append(missing, table)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("checking table %s: %w", table, err)
		}
	}
	return missing, nil
}

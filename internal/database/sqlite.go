package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"modgate/internal/database/migrations"
	"modgate/internal/database/sqlc"
	"modgate/internal/gate"
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

var _ gate.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    "",
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer. One connection serializes every
	// conditional write and keeps a ":memory:" database from splitting
	// into one empty database per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Content items

func (s *SQLiteDatabase) FindContent(ctx context.Context, id string) (*sqlc.ContentItem, error) {
	item, err := s.queries.GetContentItem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding content item: %w", err)
	}
	return &item, nil
}

func (s *SQLiteDatabase) InsertContentIfAbsent(ctx context.Context, item *sqlc.ContentItem) (bool, error) {
	n, err := s.queries.InsertContentItemIfAbsent(ctx, sqlc.InsertContentItemIfAbsentParams{
		ID:              item.ID,
		OwnerID:         item.OwnerID,
		Kind:            item.Kind,
		Category:        item.Category,
		Title:           item.Title,
		StagingPath:     item.StagingPath,
		Checksum:        item.Checksum,
		Size:            item.Size,
		DurationMs:      item.DurationMs,
		MetadataVersion: item.MetadataVersion,
		Status:          item.Status,
		CreatedAt:       item.CreatedAt.UTC(),
		UpdatedAt:       item.UpdatedAt.UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("inserting content item: %w", err)
	}
	return n > 0, nil
}

// Transition applies pipeline status changes. Approval and activation are
// reachable only through RecordDecision and Activate; the one exception is
// a failed publish returning an already approved item to approved.
func (s *SQLiteDatabase) Transition(ctx context.Context, change gate.StatusChange) (*sqlc.ContentItem, error) {
	if err := gate.ValidateTransition(change.From, change.To, false); err != nil {
		return nil, err
	}
	if change.To == gate.StatusActive || (change.To == gate.StatusApproved && change.From != gate.StatusPublishing) {
		return nil, fmt.Errorf("%w: %s requires a recorded decision", gate.ErrInvalidTransition, change.To)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	updated, err := applyStatusChange(ctx, qtx, change)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return updated, nil
}

func (s *SQLiteDatabase) Claim(ctx context.Context, item *sqlc.ContentItem, at time.Time) (*sqlc.ContentItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	n, err := qtx.ClaimContentItem(ctx, sqlc.ClaimContentItemParams{
		UpdatedAt: at.UTC(),
		ID:        item.ID,
		Status:    item.Status,
		Version:   item.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("claiming content item: %w", err)
	}
	if n == 0 {
		return nil, lostWrite(ctx, qtx, item.ID)
	}
	claimed, err := qtx.GetContentItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("reading claimed content item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &claimed, nil
}

// RecordDecision writes the status change and the decision row together.
// The decision is stamped with the durable URI read inside the transaction.
func (s *SQLiteDatabase) RecordDecision(ctx context.Context, change gate.StatusChange, decision *sqlc.ModerationDecision) (*sqlc.ContentItem, *sqlc.ModerationDecision, error) {
	if gate.Decision(decision.Decision).Status() != change.To {
		return nil, nil, fmt.Errorf("%w: decision %s does not lead to %s", gate.ErrInvalidTransition, decision.Decision, change.To)
	}
	if decision.DecidedBy.Valid {
		if err := gate.ValidateOverride(change.From, change.To); err != nil {
			return nil, nil, err
		}
	} else if change.From != gate.StatusAnalyzing {
		return nil, nil, fmt.Errorf("%w: automated decision from %s", gate.ErrInvalidTransition, change.From)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	updated, err := applyStatusChange(ctx, qtx, change)
	if err != nil {
		return nil, nil, err
	}
	if change.To == gate.StatusApproved && (!updated.DurableUri.Valid || updated.DurableUri.String == "") {
		return nil, nil, fmt.Errorf("%w: cannot approve %s without a verified durable copy", gate.ErrInvalidTransition, updated.ID)
	}

	recorded, err := qtx.InsertModerationDecision(ctx, sqlc.InsertModerationDecisionParams{
		ContentID:       change.ContentID,
		Decision:        decision.Decision,
		Reason:          decision.Reason,
		DecidedBy:       decision.DecidedBy,
		DurableUri:      updated.DurableUri.String,
		ModalityResults: decision.ModalityResults,
		CreatedAt:       decision.CreatedAt.UTC(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, fmt.Errorf("%s already has an automated decision: %w", change.ContentID, gate.ErrConcurrencyConflict)
		}
		return nil, nil, fmt.Errorf("inserting moderation decision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing transaction: %w", err)
	}
	return updated, &recorded, nil
}

func (s *SQLiteDatabase) SetDeliveryAsset(ctx context.Context, item *sqlc.ContentItem, assetID string, at time.Time) (*sqlc.ContentItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	n, err := qtx.SetDeliveryAsset(ctx, sqlc.SetDeliveryAssetParams{
		DeliveryAssetID: nullString(assetID),
		UpdatedAt:       at.UTC(),
		ID:              item.ID,
		Version:         item.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("setting delivery asset: %w", err)
	}
	if n == 0 {
		return nil, lostWrite(ctx, qtx, item.ID)
	}
	updated, err := qtx.GetContentItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("reading content item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &updated, nil
}

// Activate re-reads the latest decision in the same transaction as the
// activation write, so an item is never activated on a stale approval.
func (s *SQLiteDatabase) Activate(ctx context.Context, item *sqlc.ContentItem, deliveryURL, thumbnailURL string, at time.Time) (*sqlc.ContentItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	latest, err := qtx.GetLatestModerationDecision(ctx, item.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s has no decision", gate.ErrInvalidTransition, item.ID)
		}
		return nil, fmt.Errorf("reading latest decision: %w", err)
	}
	if gate.Decision(latest.Decision) != gate.DecisionApproved {
		return nil, fmt.Errorf("%w: latest decision for %s is %s", gate.ErrInvalidTransition, item.ID, latest.Decision)
	}
	if latest.DurableUri != item.DurableUri.String {
		return nil, fmt.Errorf("%w: %s was approved for a different durable copy", gate.ErrInvalidTransition, item.ID)
	}

	n, err := qtx.ActivateContentItem(ctx, sqlc.ActivateContentItemParams{
		DeliveryUrl:  nullString(deliveryURL),
		ThumbnailUrl: nullString(thumbnailURL),
		UpdatedAt:    at.UTC(),
		ID:           item.ID,
		Version:      item.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("activating content item: %w", err)
	}
	if n == 0 {
		return nil, lostWrite(ctx, qtx, item.ID)
	}
	activated, err := qtx.GetContentItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("reading content item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &activated, nil
}

// MarkDeleted is idempotent: deleting a deleted item succeeds.
func (s *SQLiteDatabase) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	n, err := s.queries.MarkContentItemDeleted(ctx, sqlc.MarkContentItemDeletedParams{
		DeletedAt: sql.NullTime{Time: at.UTC(), Valid: true},
		UpdatedAt: at.UTC(),
		ID:        id,
	})
	if err != nil {
		return fmt.Errorf("deleting content item: %w", err)
	}
	if n > 0 {
		return nil
	}
	item, err := s.FindContent(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%s: %w", id, gate.ErrNotFound)
	}
	return nil
}

func (s *SQLiteDatabase) ListStuckContent(ctx context.Context, updatedBefore time.Time, limit int) ([]*sqlc.ContentItem, error) {
	items, err := s.queries.ListStuckContentItems(ctx, sqlc.ListStuckContentItemsParams{
		UpdatedBefore: updatedBefore.UTC(),
		Limit:         int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing stuck content: %w", err)
	}
	return toPointers(items), nil
}

func (s *SQLiteDatabase) ListActiveContent(ctx context.Context) ([]*sqlc.ContentItem, error) {
	items, err := s.queries.ListActiveContentItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active content: %w", err)
	}
	return toPointers(items), nil
}

// Moderation decisions

func (s *SQLiteDatabase) ListDecisions(ctx context.Context, contentID string) ([]*sqlc.ModerationDecision, error) {
	decisions, err := s.queries.ListModerationDecisions(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("listing moderation decisions: %w", err)
	}
	return toPointers(decisions), nil
}

func (s *SQLiteDatabase) LatestDecision(ctx context.Context, contentID string) (*sqlc.ModerationDecision, error) {
	decision, err := s.queries.GetLatestModerationDecision(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding latest moderation decision: %w", err)
	}
	return &decision, nil
}

// CountAutomatedDecisions returns how many automated decisions exist for an item.
func (s *SQLiteDatabase) CountAutomatedDecisions(ctx context.Context, contentID string) (int64, error) {
	n, err := s.queries.CountAutomatedDecisions(ctx, contentID)
	if err != nil {
		return 0, fmt.Errorf("counting automated decisions: %w", err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// MigrateUp applies pending schema migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	_, err := migrations.MigrateUp(s.db)
	return err
}

// CheckMigrations verifies that the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// SchemaStatus reports the schema version and required tables.
func (s *SQLiteDatabase) SchemaStatus() (migrations.Status, error) {
	return migrations.ReadStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// applyStatusChange runs the conditional update and returns the new row.
func applyStatusChange(ctx context.Context, q *sqlc.Queries, change gate.StatusChange) (*sqlc.ContentItem, error) {
	n, err := q.TransitionContentItem(ctx, sqlc.TransitionContentItemParams{
		ToStatus:      string(change.To),
		FlaggedReason: nullString(change.FlaggedReason),
		DurableUri:    nullString(change.DurableURI),
		UpdatedAt:     change.At.UTC(),
		ID:            change.ContentID,
		FromStatus:    string(change.From),
		Version:       change.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("transitioning content item: %w", err)
	}
	if n == 0 {
		return nil, lostWrite(ctx, q, change.ContentID)
	}
	updated, err := q.GetContentItem(ctx, change.ContentID)
	if err != nil {
		return nil, fmt.Errorf("reading content item: %w", err)
	}
	return &updated, nil
}

// lostWrite explains why a conditional write matched no row.
func lostWrite(ctx context.Context, q *sqlc.Queries, id string) error {
	item, err := q.GetContentItem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", id, gate.ErrNotFound)
		}
		return fmt.Errorf("reading content item: %w", err)
	}
	if item.DeletedAt.Valid {
		return fmt.Errorf("%s: %w", id, gate.ErrContentDeleted)
	}
	return fmt.Errorf("%s changed underneath: %w", id, gate.ErrConcurrencyConflict)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toPointers[T any](rows []T) []*T {
	out := make([]*T, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

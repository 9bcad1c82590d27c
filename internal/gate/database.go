package gate

import (
	"context"
	"time"

	"modgate/internal/database/sqlc"
)

// StatusChange is a conditional status write. It applies only while the item
// is still at From with the given Version and has not been deleted.
type StatusChange struct {
	ContentID string
	From      Status
	Version   int64
	To        Status
	// FlaggedReason replaces the stored reason; empty clears it.
	FlaggedReason string
	// DurableURI is recorded when non-empty and left untouched otherwise.
	DurableURI string
	At         time.Time
}

// NewStatusChange builds a StatusChange guarded by item's current status and version.
func NewStatusChange(item *sqlc.ContentItem, to Status, reason string, at time.Time) StatusChange {
	return StatusChange{
		ContentID:     item.ID,
		From:          Status(item.Status),
		Version:       item.Version,
		To:            to,
		FlaggedReason: reason,
		At:            at,
	}
}

// Database provides an interface for metadata storage operations.
// Every write is conditional on status and version. A write that loses returns
// ErrConcurrencyConflict, or ErrContentDeleted when the item was tombstoned.
type Database interface {
	// Content items

	// FindContent returns the item with id, or nil if there is none.
	// Tombstoned items are returned with DeletedAt set.
	FindContent(ctx context.Context, id string) (*sqlc.ContentItem, error)

	// InsertContentIfAbsent creates the item unless the id exists already.
	// Returns false when an item with that id was already present.
	InsertContentIfAbsent(ctx context.Context, item *sqlc.ContentItem) (bool, error)

	// Transition applies a pipeline status change and returns the updated item.
	// Targets approved and active are refused with ErrInvalidTransition.
	Transition(ctx context.Context, change StatusChange) (*sqlc.ContentItem, error)

	// Claim bumps the version of an item without changing its status, giving
	// the caller exclusive ownership of the next step.
	Claim(ctx context.Context, item *sqlc.ContentItem, at time.Time) (*sqlc.ContentItem, error)

	// RecordDecision appends a moderation decision and moves the item to the
	// decided status in one transaction. A decision with no DecidedBy is
	// automated and must leave analyzing; at most one exists per item.
	// Human decisions must follow the override transitions.
	RecordDecision(ctx context.Context, change StatusChange, decision *sqlc.ModerationDecision) (*sqlc.ContentItem, *sqlc.ModerationDecision, error)

	// SetDeliveryAsset records the delivery network asset of a publishing item.
	// An empty assetID clears it.
	SetDeliveryAsset(ctx context.Context, item *sqlc.ContentItem, assetID string, at time.Time) (*sqlc.ContentItem, error)

	// Activate marks a publishing item active after re-reading its latest
	// decision inside the same transaction.
	Activate(ctx context.Context, item *sqlc.ContentItem, deliveryURL, thumbnailURL string, at time.Time) (*sqlc.ContentItem, error)

	// MarkDeleted tombstones an item and clears is_active.
	MarkDeleted(ctx context.Context, id string, at time.Time) error

	// ListStuckContent returns live, non-active items in a non-resting status
	// whose updated_at is before the cutoff, oldest first.
	ListStuckContent(ctx context.Context, updatedBefore time.Time, limit int) ([]*sqlc.ContentItem, error)

	// ListActiveContent returns every item with is_active set.
	ListActiveContent(ctx context.Context) ([]*sqlc.ContentItem, error)

	// Moderation decisions

	// ListDecisions returns all decisions for an item, oldest first.
	ListDecisions(ctx context.Context, contentID string) ([]*sqlc.ModerationDecision, error)

	// LatestDecision returns the authoritative decision for an item, or nil.
	LatestDecision(ctx context.Context, contentID string) (*sqlc.ModerationDecision, error)

	// Close closes the database connection.
	Close() error
}

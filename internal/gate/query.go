package gate

import (
	"context"
	"errors"
	"fmt"

	"modgate/internal/database/sqlc"
)

// GetStatus returns the consumer view of an item. Deleted items are not found.
func (s *Service) GetStatus(ctx context.Context, id string) (*StatusView, error) {
	item, err := s.database.FindContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load content %s: %w", id, err)
	}
	if item == nil || item.DeletedAt.Valid {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return &StatusView{
		ContentID:     item.ID,
		Status:        Status(item.Status),
		FlaggedReason: item.FlaggedReason.String,
		IsActive:      item.IsActive,
		DeliveryURL:   item.DeliveryUrl.String,
		ThumbnailURL:  item.ThumbnailUrl.String,
		UpdatedAt:     item.UpdatedAt,
	}, nil
}

// ListDecisions returns the audit trail of an item, oldest first. The trail
// outlives deletion.
func (s *Service) ListDecisions(ctx context.Context, id string) ([]*sqlc.ModerationDecision, error) {
	item, err := s.database.FindContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load content %s: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s.database.ListDecisions(ctx, id)
}

// CheckInvariant verifies that every active item is backed by a verified
// durable copy and an approving latest decision about that same copy.
func (s *Service) CheckInvariant(ctx context.Context) error {
	items, err := s.database.ListActiveContent(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active content: %w", err)
	}

	var errs []error
	for _, item := range items {
		if Status(item.Status) != StatusActive {
			errs = append(errs, fmt.Errorf("%s is active with status %s", item.ID, item.Status))
		}
		if !item.DurableUri.Valid || item.DurableUri.String == "" {
			errs = append(errs, fmt.Errorf("%s is active without a durable copy", item.ID))
			continue
		}
		latest, err := s.database.LatestDecision(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("failed to load latest decision for %s: %w", item.ID, err)
		}
		switch {
		case latest == nil:
			errs = append(errs, fmt.Errorf("%s is active without a decision", item.ID))
		case Decision(latest.Decision) != DecisionApproved:
			errs = append(errs, fmt.Errorf("%s is active but its latest decision is %s", item.ID, latest.Decision))
		case latest.DurableUri != item.DurableUri.String:
			errs = append(errs, fmt.Errorf("%s was approved for %s but serves %s", item.ID, latest.DurableUri, item.DurableUri.String))
		}
	}
	return errors.Join(errs...)
}

package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"modgate/internal/database/sqlc"
)

var (
	errAssetProcessing = Transient(errors.New("asset still processing"))
	errAssetFailed     = errors.New("delivery network reported asset error")
)

// Publish hands an approved item to the delivery network and activates it
// once the asset is ready.
func (s *Service) Publish(ctx context.Context, id string) error {
	item, err := s.liveItem(ctx, id)
	if err != nil {
		return err
	}
	if Status(item.Status) != StatusApproved {
		return fmt.Errorf("%w: cannot publish %s content", ErrInvalidTransition, item.Status)
	}
	_, err = s.publish(ctx, item)
	return err
}

// publish creates the delivery asset at most once per attempt sequence: the
// asset id is persisted as soon as it exists, so later attempts only re-poll.
// Any failure leaves the item approved, inactive, and flagged for retry.
func (s *Service) publish(ctx context.Context, item *sqlc.ContentItem) (*sqlc.ContentItem, error) {
	defer s.observe("publish", time.Now())

	var err error
	if Status(item.Status) == StatusPublishing {
		// Only reached by an owner that claimed an abandoned publish.
		item, err = s.transition(ctx, NewStatusChange(item, StatusApproved, ReasonPublishPendingRetry, s.now()))
		if err != nil {
			return nil, err
		}
	}
	if Status(item.Status) != StatusApproved {
		return nil, fmt.Errorf("%w: cannot publish %s content", ErrInvalidTransition, item.Status)
	}

	latest, err := s.database.LatestDecision(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest decision for %s: %w", item.ID, err)
	}
	if latest == nil || Decision(latest.Decision) != DecisionApproved {
		return nil, fmt.Errorf("%w: %s has no approving decision", ErrInvalidTransition, item.ID)
	}

	item, err = s.transition(ctx, NewStatusChange(item, StatusPublishing, "", s.now()))
	if err != nil {
		return nil, err
	}

	assetID := item.DeliveryAssetID.String
	if !item.DeliveryAssetID.Valid || assetID == "" {
		if err := s.ensureCurrent(ctx, item); err != nil {
			return nil, err
		}
		_, err := s.policy.PublishRetry.Do(ctx, func(ctx context.Context) error {
			id, err := s.delivery.CreateAsset(ctx, item.DurableUri.String, item.Title)
			if err != nil {
				return err
			}
			assetID = id
			return nil
		})
		if err != nil {
			return s.publishFailed(ctx, item, &PublishError{Stage: "create", Err: err})
		}
		recorded, err := s.database.SetDeliveryAsset(ctx, item, assetID, s.now())
		if err != nil {
			s.logger.Warn("created delivery asset could not be recorded", "content_id", item.ID, "asset_id", assetID, "error", err)
			return nil, err
		}
		item = recorded
	}

	if err := s.awaitAsset(ctx, assetID); err != nil {
		if errors.Is(err, errAssetFailed) {
			// The next attempt must create a fresh asset rather than re-poll a dead one.
			cleared, cerr := s.database.SetDeliveryAsset(ctx, item, "", s.now())
			if cerr != nil {
				return nil, cerr
			}
			item = cleared
		}
		return s.publishFailed(ctx, item, err)
	}

	if err := s.ensureCurrent(ctx, item); err != nil {
		return nil, err
	}
	activated, err := s.database.Activate(ctx, item, s.delivery.PlaybackURL(assetID), s.delivery.ThumbnailURL(assetID), s.now())
	if err != nil {
		return nil, err
	}

	s.metrics.PublishOutcome("activated")
	s.logger.Info("content transitioned", "content_id", item.ID, "from", StatusPublishing, "to", StatusActive, "asset_id", assetID)
	return activated, nil
}

// awaitAsset polls the delivery network until the asset is ready, it reports
// an error, or the poll attempts run out.
func (s *Service) awaitAsset(ctx context.Context, assetID string) error {
	poll := RetryPolicy{
		MaxAttempts:    s.policy.PollAttempts,
		AttemptTimeout: s.policy.PublishRetry.AttemptTimeout,
		InitialBackoff: s.policy.PollInterval,
		MaxBackoff:     4 * s.policy.PollInterval,
	}
	_, err := poll.Do(ctx, func(ctx context.Context) error {
		status, err := s.delivery.PollStatus(ctx, assetID)
		if err != nil {
			return err
		}
		switch status {
		case AssetReady:
			return nil
		case AssetError:
			return errAssetFailed
		}
		return errAssetProcessing
	})
	if err != nil {
		return &PublishError{Stage: "poll", AssetID: assetID, Err: err}
	}
	return nil
}

// publishFailed parks the item back at approved for the sweeper to retry.
func (s *Service) publishFailed(ctx context.Context, item *sqlc.ContentItem, cause error) (*sqlc.ContentItem, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.logger.Warn("publish failed", "content_id", item.ID, "error", cause)
	s.metrics.PublishOutcome("pending_retry")
	return s.transition(ctx, NewStatusChange(item, StatusApproved, ReasonPublishPendingRetry, s.now()))
}

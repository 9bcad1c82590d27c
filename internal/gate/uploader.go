package gate

import (
	"context"
	"fmt"
	"time"

	"modgate/internal/database/sqlc"
)

// DurableKey is the deterministic object key of a content item.
func DurableKey(item *sqlc.ContentItem) string {
	return fmt.Sprintf("content/%s/%s", item.Kind, item.ID)
}

// Upload copies a staged item to the durable store and verifies the copy.
func (s *Service) Upload(ctx context.Context, id string) error {
	item, err := s.liveItem(ctx, id)
	if err != nil {
		return err
	}
	if Status(item.Status) != StatusStaged {
		return fmt.Errorf("%w: cannot upload %s content", ErrInvalidTransition, item.Status)
	}
	_, err = s.upload(ctx, item)
	return err
}

// upload never trusts a successful Put: durable_uri is recorded only after
// Exists and Size agree with what was staged.
func (s *Service) upload(ctx context.Context, item *sqlc.ContentItem) (*sqlc.ContentItem, error) {
	defer s.observe("upload", time.Now())

	if err := s.ensureCurrent(ctx, item); err != nil {
		return nil, err
	}

	key := DurableKey(item)
	attempts, err := s.policy.Retry.Do(ctx, func(ctx context.Context) error {
		r, err := s.staging.Open(item.ID)
		if err != nil {
			return fmt.Errorf("failed to open staged content: %w", err)
		}
		defer r.Close()
		return s.store.Put(ctx, key, r, item.Size)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		uerr := &DurableUploadError{Key: key, Err: err}
		s.logger.Warn("durable upload failed", "content_id", item.ID, "attempts", attempts, "error", uerr)
		return s.fail(ctx, item, ReasonDurableUploadFailed)
	}

	if err := s.verifyDurable(ctx, key, item.Size); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("durable copy did not verify", "content_id", item.ID, "key", key, "error", err)
		return s.fail(ctx, item, ReasonStorageVerificationFailed)
	}

	change := NewStatusChange(item, StatusUploaded, "", s.now())
	change.DurableURI = s.store.URI(key)
	updated, err := s.transition(ctx, change)
	if err != nil {
		return nil, err
	}

	if err := s.staging.Remove(item.ID); err != nil {
		s.logger.Warn("failed to remove staged content", "content_id", item.ID, "error", err)
	}
	return updated, nil
}

// verifyDurable checks existence and size independently of the Put result.
func (s *Service) verifyDurable(ctx context.Context, key string, size int64) error {
	_, err := s.policy.Retry.Do(ctx, func(ctx context.Context) error {
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", key, err)
		}
		if !exists {
			return fmt.Errorf("%w: %s does not exist", ErrVerificationFailed, key)
		}
		got, err := s.store.Size(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to size %s: %w", key, err)
		}
		if got != size {
			return fmt.Errorf("%w: %s has %d bytes, want %d", ErrVerificationFailed, key, got, size)
		}
		return nil
	})
	return err
}

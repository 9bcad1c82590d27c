package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"modgate/internal/database/sqlc"
)

// Process drives one item from its current status to a resting state:
// active, rejected, failed, or approved with a publish pending retry.
// Items another worker is analyzing or publishing are left alone.
func (s *Service) Process(ctx context.Context, id string) error {
	item, err := s.liveItem(ctx, id)
	if err != nil {
		return err
	}
	switch Status(item.Status) {
	case StatusAnalyzing, StatusPublishing:
		s.logger.Debug("content in flight elsewhere", "content_id", id, "status", item.Status)
		return nil
	}
	return s.settle(id, s.advance(ctx, item))
}

// ProcessAll processes ids with at most Policy.Concurrency running at once.
func (s *Service) ProcessAll(ctx context.Context, ids []string) error {
	return s.forEachBounded(ctx, len(ids), func(ctx context.Context, i int) error {
		if err := s.Process(ctx, ids[i]); err != nil {
			return fmt.Errorf("%s: %w", ids[i], err)
		}
		return nil
	})
}

// advance runs pipeline steps on an item the caller owns until it rests.
func (s *Service) advance(ctx context.Context, item *sqlc.ContentItem) error {
	s.metrics.InFlight(1)
	defer s.metrics.InFlight(-1)

	for {
		var err error
		switch Status(item.Status) {
		case StatusStaged:
			item, err = s.upload(ctx, item)
		case StatusUploaded, StatusAnalyzing:
			item, err = s.analyzeAndDecide(ctx, item)
		case StatusApproved, StatusPublishing:
			item, err = s.publish(ctx, item)
			if err == nil && Status(item.Status) == StatusApproved {
				return nil
			}
		default:
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// settle swallows the outcomes that mean another actor legitimately took over.
func (s *Service) settle(id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConcurrencyConflict):
		s.logger.Debug("lost race for content, discarding result", "content_id", id)
		return nil
	case errors.Is(err, ErrContentDeleted):
		s.logger.Info("content deleted while in flight, abandoning", "content_id", id)
		return nil
	}
	return err
}

// liveItem loads an item that exists and has not been deleted.
func (s *Service) liveItem(ctx context.Context, id string) (*sqlc.ContentItem, error) {
	item, err := s.database.FindContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load content %s: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if item.DeletedAt.Valid {
		return nil, fmt.Errorf("%s: %w", id, ErrContentDeleted)
	}
	return item, nil
}

// ensureCurrent re-reads item and fails if anyone has written it since.
// Called before side effects that cannot be undone by a failed CAS.
func (s *Service) ensureCurrent(ctx context.Context, item *sqlc.ContentItem) error {
	current, err := s.liveItem(ctx, item.ID)
	if err != nil {
		return err
	}
	if current.Version != item.Version || current.Status != item.Status {
		return fmt.Errorf("%s: %w", item.ID, ErrConcurrencyConflict)
	}
	return nil
}

// transition applies a pipeline status change and logs it.
func (s *Service) transition(ctx context.Context, change StatusChange) (*sqlc.ContentItem, error) {
	updated, err := s.database.Transition(ctx, change)
	if err != nil {
		return nil, err
	}
	s.logger.Info("content transitioned", "content_id", change.ContentID, "from", change.From, "to", change.To, "reason", change.FlaggedReason)
	return updated, nil
}

// fail moves an item to the terminal failed status.
func (s *Service) fail(ctx context.Context, item *sqlc.ContentItem, reason string) (*sqlc.ContentItem, error) {
	return s.transition(ctx, NewStatusChange(item, StatusFailed, reason, s.now()))
}

func (s *Service) observe(stage string, start time.Time) {
	s.metrics.StageDuration(stage, time.Since(start))
}

// forEachBounded calls fn for 0..n-1 with at most Policy.Concurrency calls
// in flight and joins their errors.
func (s *Service) forEachBounded(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	limit := int64(s.policy.Concurrency)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < n; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			if err := fn(ctx, i); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

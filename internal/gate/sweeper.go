package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"modgate/internal/database/sqlc"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	Examined int
	Claimed  int
	Skipped  int
	Stalled  int
	Resumed  int
	Errors   int
}

// Sweep finds items stuck in a non-resting status longer than the grace
// period and claims each before touching it. Pre-decision items older than
// the stall timeout are failed; the rest resume where they stopped.
// The sweeper never writes an approval of its own.
func (s *Service) Sweep(ctx context.Context) (SweepReport, error) {
	now := s.now()
	limit := s.policy.SweepBatchSize
	if limit <= 0 {
		limit = 100
	}
	items, err := s.database.ListStuckContent(ctx, now.Add(-s.policy.GracePeriod), limit)
	if err != nil {
		return SweepReport{}, fmt.Errorf("failed to list stuck content: %w", err)
	}

	report := SweepReport{Examined: len(items)}
	var mu sync.Mutex
	err = s.forEachBounded(ctx, len(items), func(ctx context.Context, i int) error {
		action, err := s.sweepOne(ctx, items[i], now)

		mu.Lock()
		defer mu.Unlock()
		switch action {
		case "skipped":
			report.Skipped++
		case "stalled":
			report.Claimed++
			report.Stalled++
		case "resumed":
			report.Claimed++
			report.Resumed++
		}
		if err != nil {
			report.Errors++
		}
		s.metrics.SweepAction(action)
		return err
	})

	s.logger.Info("sweep finished", "examined", report.Examined, "claimed", report.Claimed, "skipped", report.Skipped, "stalled", report.Stalled, "resumed", report.Resumed, "errors", report.Errors)
	return report, err
}

func (s *Service) sweepOne(ctx context.Context, item *sqlc.ContentItem, now time.Time) (string, error) {
	claimed, err := s.database.Claim(ctx, item, now)
	if errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrContentDeleted) {
		s.logger.Debug("sweeper skipped content", "content_id", item.ID, "status", item.Status)
		return "skipped", nil
	}
	if err != nil {
		return "error", fmt.Errorf("failed to claim %s: %w", item.ID, err)
	}

	if Status(claimed.Status).IsPreDecision() && s.policy.StallTimeout > 0 && now.Sub(claimed.CreatedAt) > s.policy.StallTimeout {
		_, err := s.fail(ctx, claimed, ReasonStalled)
		return "stalled", s.settle(claimed.ID, err)
	}

	s.logger.Info("sweeper resuming content", "content_id", claimed.ID, "status", claimed.Status)
	return "resumed", s.settle(claimed.ID, s.advance(ctx, claimed))
}

// RunSweeper runs Sweep every interval until ctx ends. Overlapping runs are skipped.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid sweep interval %s", interval)
	}

	logger := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc("@every "+interval.String(), func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule sweeper: %w", err)
	}

	s.logger.Info("sweeper started", "interval", interval)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("sweeper stopped")
	return nil
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	logger Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"modgate/internal/gate"
)

// BreakerService wraps an AnalysisService with a circuit breaker. Only
// transient failures of the service count against the breaker. A rejected
// request, a malformed job, a job that is merely slow and a caller's own
// deadline or cancellation do not.
type BreakerService struct {
	next    gate.AnalysisService
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerService trips after failures consecutive transient errors and
// half-opens after timeout.
func NewBreakerService(next gate.AnalysisService, failures uint32, timeout time.Duration, logger gate.Logger) *BreakerService {
	if failures == 0 {
		failures = 5
	}
	settings := gobreaker.Settings{
		Name:        "analysis",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: healthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerService{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerService) Submit(ctx context.Context, uri string, features []gate.Feature) (gate.JobHandle, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Submit(ctx, uri, features)
	})
	if err != nil {
		return gate.JobHandle{}, breakerError(err)
	}
	return result.(gate.JobHandle), nil
}

func (b *BreakerService) Await(ctx context.Context, job gate.JobHandle, timeout time.Duration) (*gate.Annotations, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Await(ctx, job, timeout)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return result.(*gate.Annotations), nil
}

// healthy reports whether err leaves the service's health untouched.
func healthy(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, gate.ErrAwaitTimeout),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return !gate.IsTransient(err)
}

// State returns the breaker's current state.
func (b *BreakerService) State() gobreaker.State {
	return b.breaker.State()
}

// breakerError marks a refused call as transient so the retry policy backs
// off and tries again once the breaker half-opens.
func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return gate.Transient(fmt.Errorf("analysis service unavailable: %w", err))
	}
	return err
}

// Compile-time check that BreakerService implements gate.AnalysisService interface
var _ gate.AnalysisService = (*BreakerService)(nil)

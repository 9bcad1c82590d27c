package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"modgate/internal/gate"
)

// BreakerNetwork wraps a DeliveryNetwork with a circuit breaker. URL
// construction is local and bypasses the breaker.
type BreakerNetwork struct {
	next    gate.DeliveryNetwork
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerNetwork(next gate.DeliveryNetwork, failures uint32, timeout time.Duration, logger gate.Logger) *BreakerNetwork {
	if failures == 0 {
		failures = 5
	}
	settings := gobreaker.Settings{
		Name:        "delivery",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !gate.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerNetwork{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerNetwork) CreateAsset(ctx context.Context, sourceURI, title string) (string, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.CreateAsset(ctx, sourceURI, title)
	})
	if err != nil {
		return "", breakerError(err)
	}
	return result.(string), nil
}

func (b *BreakerNetwork) PollStatus(ctx context.Context, assetID string) (gate.AssetStatus, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.PollStatus(ctx, assetID)
	})
	if err != nil {
		return "", breakerError(err)
	}
	return result.(gate.AssetStatus), nil
}

func (b *BreakerNetwork) PlaybackURL(assetID string) string {
	return b.next.PlaybackURL(assetID)
}

func (b *BreakerNetwork) ThumbnailURL(assetID string) string {
	return b.next.ThumbnailURL(assetID)
}

// State returns the breaker's current state.
func (b *BreakerNetwork) State() gobreaker.State {
	return b.breaker.State()
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return gate.Transient(fmt.Errorf("delivery network unavailable: %w", err))
	}
	return err
}

// Compile-time check that BreakerNetwork implements gate.DeliveryNetwork interface
var _ gate.DeliveryNetwork = (*BreakerNetwork)(nil)

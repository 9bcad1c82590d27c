package gate

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often and how patiently an external call is retried.
// Only transient errors are retried. A zero InitialBackoff retries immediately.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		AttemptTimeout: 2 * time.Minute,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// Do runs fn until it succeeds, returns a non-transient error, or the attempts
// run out. Each attempt gets its own deadline; an attempt that overruns it
// counts as transient. Returns the number of attempts made and the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var base backoff.BackOff = &backoff.ZeroBackOff{}
	if p.InitialBackoff > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = p.InitialBackoff
		if p.MaxBackoff > 0 {
			b.MaxInterval = p.MaxBackoff
		}
		b.MaxElapsedTime = 0
		base = b
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(base, uint64(maxAttempts-1)), ctx)

	attempts := 0
	operation := func() error {
		attempts++
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case IsTransient(err):
			return err
		case errors.Is(err, context.DeadlineExceeded) && attemptCtx.Err() != nil:
			return Transient(err)
		default:
			return backoff.Permanent(err)
		}
	}

	err := backoff.Retry(operation, policy)
	return attempts, err
}

package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"modgate/internal/gate"
)

func TestRetryPolicy_Do(t *testing.T) {
	policy := gate.RetryPolicy{MaxAttempts: 3}
	boom := errors.New("boom")

	tests := []struct {
		name         string
		errs         []error
		wantAttempts int
		wantErr      error
	}{
		{name: "succeeds first time", errs: nil, wantAttempts: 1},
		{name: "retries transient", errs: []error{gate.Transient(boom), gate.Transient(boom)}, wantAttempts: 3},
		{name: "gives up after max attempts", errs: []error{gate.Transient(boom), gate.Transient(boom), gate.Transient(boom)}, wantAttempts: 3, wantErr: boom},
		{name: "never retries permanent", errs: []error{boom}, wantAttempts: 1, wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
				calls++
				if calls <= len(tt.errs) {
					return tt.errs[calls-1]
				}
				return nil
			})
			if attempts != tt.wantAttempts || calls != tt.wantAttempts {
				t.Errorf("Do() attempts = %d, calls = %d, want %d", attempts, calls, tt.wantAttempts)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("Do() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Do() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryPolicy_Do_AttemptTimeoutIsTransient(t *testing.T) {
	policy := gate.RetryPolicy{MaxAttempts: 2, AttemptTimeout: 10 * time.Millisecond}

	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if attempts != 2 {
		t.Errorf("Do() attempts = %d, want 2", attempts)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want deadline exceeded", err)
	}
}

func TestRetryPolicy_Do_StopsWhenCancelled(t *testing.T) {
	policy := gate.RetryPolicy{MaxAttempts: 5}
	ctx, cancel := context.WithCancel(context.Background())

	attempts, err := policy.Do(ctx, func(ctx context.Context) error {
		cancel()
		return gate.Transient(errors.New("unavailable"))
	})
	if attempts != 1 {
		t.Errorf("Do() attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestTransient(t *testing.T) {
	if gate.Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
	err := gate.Transient(errors.New("rate limited"))
	if !gate.IsTransient(err) {
		t.Error("IsTransient() = false for a transient error")
	}
	if !gate.IsTransient(errors.Join(errors.New("outer"), err)) {
		t.Error("IsTransient() = false for a wrapped transient error")
	}
	if gate.IsTransient(errors.New("bad request")) {
		t.Error("IsTransient() = true for a plain error")
	}
	if !gate.IsTransient(gate.ErrAwaitTimeout) {
		t.Error("ErrAwaitTimeout should be transient")
	}
}

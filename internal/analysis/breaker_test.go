package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"modgate/internal/gate"
)

type failingService struct {
	err   error
	calls int
}

func (f *failingService) Submit(ctx context.Context, uri string, features []gate.Feature) (gate.JobHandle, error) {
	f.calls++
	if f.err != nil {
		return gate.JobHandle{}, f.err
	}
	return gate.JobHandle{ID: "job"}, nil
}

func (f *failingService) Await(ctx context.Context, job gate.JobHandle, timeout time.Duration) (*gate.Annotations, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gate.Annotations{}, nil
}

func TestBreakerService(t *testing.T) {
	ctx := context.Background()

	t.Run("opens after consecutive transient failures", func(t *testing.T) {
		next := &failingService{err: gate.Transient(errors.New("unavailable"))}
		b := NewBreakerService(next, 2, time.Hour, gate.NewNopLogger())

		for i := 0; i < 2; i++ {
			b.Submit(ctx, "uri", nil)
		}
		if b.State() != gobreaker.StateOpen {
			t.Fatalf("State() = %v, want open", b.State())
		}

		_, err := b.Submit(ctx, "uri", nil)
		if !gate.IsTransient(err) {
			t.Errorf("Submit() on open breaker error = %v, want transient", err)
		}
		if !errors.Is(err, gobreaker.ErrOpenState) {
			t.Errorf("Submit() on open breaker error = %v, want ErrOpenState", err)
		}
		if next.calls != 2 {
			t.Errorf("next.calls = %d, want 2", next.calls)
		}
	})

	t.Run("permanent errors do not trip", func(t *testing.T) {
		next := &failingService{err: errors.New("bad request")}
		b := NewBreakerService(next, 2, time.Hour, gate.NewNopLogger())

		for i := 0; i < 5; i++ {
			if _, err := b.Await(ctx, gate.JobHandle{ID: "job"}, time.Second); err == nil {
				t.Fatal("Await() expected error")
			}
		}
		if b.State() != gobreaker.StateClosed {
			t.Errorf("State() = %v, want closed", b.State())
		}
		if next.calls != 5 {
			t.Errorf("next.calls = %d, want 5", next.calls)
		}
	})

	t.Run("slow jobs and caller deadlines do not trip", func(t *testing.T) {
		errs := []error{
			gate.ErrAwaitTimeout,
			fmt.Errorf("polling job: %w", gate.ErrAwaitTimeout),
			gate.Transient(context.DeadlineExceeded),
			context.Canceled,
		}
		for _, e := range errs {
			next := &failingService{err: e}
			b := NewBreakerService(next, 2, time.Hour, gate.NewNopLogger())
			for i := 0; i < 5; i++ {
				if _, err := b.Await(ctx, gate.JobHandle{ID: "job"}, time.Second); !errors.Is(err, e) {
					t.Fatalf("Await() error = %v, want %v", err, e)
				}
			}
			if b.State() != gobreaker.StateClosed {
				t.Errorf("State() after %v = %v, want closed", e, b.State())
			}
			if next.calls != 5 {
				t.Errorf("next.calls after %v = %d, want 5", e, next.calls)
			}
		}
	})

	t.Run("passes results through", func(t *testing.T) {
		b := NewBreakerService(&failingService{}, 2, time.Hour, gate.NewNopLogger())
		job, err := b.Submit(ctx, "uri", nil)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if job.ID != "job" {
			t.Errorf("job.ID = %q, want %q", job.ID, "job")
		}
		a, err := b.Await(ctx, job, time.Second)
		if err != nil || a == nil {
			t.Errorf("Await() = %v, %v", a, err)
		}
	})
}

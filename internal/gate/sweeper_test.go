package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"modgate/internal/gate"
	"modgate/internal/testutil"
)

// stuckAnalyzing leaves id in analyzing, as a worker that died mid-analysis would.
func stuckAnalyzing(t *testing.T, h *testutil.Harness, id string) {
	t.Helper()
	h.StageVideo(t, id)
	ctx, cancel := context.WithCancel(context.Background())
	h.Analysis.OnAwait = func(context.Context, gate.Modality) { cancel() }
	if err := h.Service.Process(ctx, id); !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() error = %v, want context.Canceled", err)
	}
	h.Analysis.OnAwait = nil
}

func TestService_Sweep(t *testing.T) {
	t.Run("leaves recent content alone", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")
		h.Clock.Advance(5 * time.Minute)

		report, err := h.Service.Sweep(context.Background())
		if err != nil {
			t.Fatalf("Sweep() error = %v", err)
		}
		if report.Examined != 0 {
			t.Errorf("Sweep() examined = %d, want 0", report.Examined)
		}
		if got := h.Item(t, "clip-1").Status; gate.Status(got) != gate.StatusStaged {
			t.Errorf("status = %s, want staged", got)
		}
	})

	t.Run("resumes stuck staged content", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")
		h.Clock.AgePast(gate.DefaultPolicy().GracePeriod)

		report, err := h.Service.Sweep(context.Background())
		if err != nil {
			t.Fatalf("Sweep() error = %v", err)
		}
		if report.Examined != 1 || report.Claimed != 1 || report.Resumed != 1 {
			t.Errorf("Sweep() = %+v, want one resumed", report)
		}
		if got := h.Item(t, "clip-1").Status; gate.Status(got) != gate.StatusActive {
			t.Errorf("status = %s, want active", got)
		}
		h.AssertInvariant(t)
	})

	t.Run("fails content stalled before a decision", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")
		h.Clock.AgePast(gate.DefaultPolicy().StallTimeout)

		report, err := h.Service.Sweep(context.Background())
		if err != nil {
			t.Fatalf("Sweep() error = %v", err)
		}
		if report.Stalled != 1 {
			t.Errorf("Sweep() = %+v, want one stalled", report)
		}
		item := h.Item(t, "clip-1")
		if gate.Status(item.Status) != gate.StatusFailed || item.FlaggedReason.String != gate.ReasonStalled {
			t.Errorf("status = %s, reason = %q, want failed as stalled", item.Status, item.FlaggedReason.String)
		}
		if h.Store.Puts() != 0 || h.Analysis.TotalSubmits() != 0 {
			t.Error("Sweep() worked on stalled content instead of failing it")
		}
	})

	t.Run("resumed analysis never defaults to approval", func(t *testing.T) {
		h := testutil.NewHarness(t)
		stuckAnalyzing(t, h, "clip-1")
		h.Clock.AgePast(gate.DefaultPolicy().GracePeriod)
		h.Analysis.Fail(gate.ModalityAudio, 3, gate.Transient(errors.New("504 gateway timeout")))

		if _, err := h.Service.Sweep(context.Background()); err != nil {
			t.Fatalf("Sweep() error = %v", err)
		}
		decisions := h.Decisions(t, "clip-1")
		if len(decisions) != 1 || gate.Decision(decisions[0].Decision) != gate.DecisionRejected {
			t.Fatalf("decisions = %+v, want one rejection", decisions)
		}
		if got := h.Item(t, "clip-1").Status; gate.Status(got) != gate.StatusRejected {
			t.Errorf("status = %s, want rejected", got)
		}
	})

	t.Run("retries a pending publish", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")
		h.Delivery.FailCreates(errors.New("422 source not reachable"))
		if err := h.Service.Process(context.Background(), "clip-1"); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		h.Clock.AgePast(gate.DefaultPolicy().GracePeriod)

		report, err := h.Service.Sweep(context.Background())
		if err != nil {
			t.Fatalf("Sweep() error = %v", err)
		}
		if report.Resumed != 1 {
			t.Errorf("Sweep() = %+v, want one resumed", report)
		}
		if got := h.Item(t, "clip-1").Status; gate.Status(got) != gate.StatusActive {
			t.Errorf("status = %s, want active", got)
		}
		if n := len(h.Decisions(t, "clip-1")); n != 1 {
			t.Errorf("decisions = %d, want 1", n)
		}
	})

	t.Run("ignores resting and deleted content", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "active")
		if err := h.Service.Process(context.Background(), "active"); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		h.StageVideo(t, "gone")
		if err := h.Service.Delete(context.Background(), "gone"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		h.Clock.AgePast(gate.DefaultPolicy().StallTimeout)

		report, err := h.Service.Sweep(context.Background())
		if err != nil {
			t.Fatalf("Sweep() error = %v", err)
		}
		if report.Examined != 0 {
			t.Errorf("Sweep() examined = %d, want 0", report.Examined)
		}
	})

	t.Run("a stale claim loses", func(t *testing.T) {
		h := testutil.NewHarness(t)
		stale := h.StageVideo(t, "clip-1")
		h.Clock.AgePast(gate.DefaultPolicy().GracePeriod)
		if _, err := h.DB.Claim(context.Background(), stale, h.Clock.Now()); err != nil {
			t.Fatalf("Claim() error = %v", err)
		}

		_, err := h.DB.Claim(context.Background(), stale, h.Clock.Now())
		if !errors.Is(err, gate.ErrConcurrencyConflict) {
			t.Fatalf("second Claim() error = %v, want ErrConcurrencyConflict", err)
		}
	})
}

func TestService_RunSweeper(t *testing.T) {
	t.Run("rejects a non-positive interval", func(t *testing.T) {
		h := testutil.NewHarness(t)
		if err := h.Service.RunSweeper(context.Background(), 0); err == nil {
			t.Error("RunSweeper() expected error for zero interval")
		}
	})

	t.Run("sweeps on schedule until cancelled", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")
		h.Clock.AgePast(gate.DefaultPolicy().GracePeriod)

		ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
		defer cancel()
		if err := h.Service.RunSweeper(ctx, time.Second); err != nil {
			t.Fatalf("RunSweeper() error = %v", err)
		}
		if got := h.Item(t, "clip-1").Status; gate.Status(got) != gate.StatusActive {
			t.Errorf("status = %s, want active", got)
		}
	})
}

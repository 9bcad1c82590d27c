package gate_test

import (
	"context"
	"errors"
	"testing"

	"modgate/internal/gate"
	"modgate/internal/testutil"
)

func TestService_Override(t *testing.T) {
	t.Run("appeal approves rejected content", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-e")
		h.Analysis.Script(gate.ModalityAudio, testutil.AnalysisStep{Annotations: testutil.TranscriptAnnotations("blorp")})
		if err := h.Service.Process(context.Background(), "clip-e"); err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		decision, err := h.Service.Override(context.Background(), gate.OverrideRequest{
			ContentID: "clip-e",
			Moderator: "mod-7",
			Decision:  gate.DecisionApproved,
			Reason:    "song lyric, not abuse",
		})
		if err != nil {
			t.Fatalf("Override() error = %v", err)
		}
		if decision.DecidedBy.String != "mod-7" {
			t.Errorf("Override() decided by = %q, want mod-7", decision.DecidedBy.String)
		}

		decisions := h.Decisions(t, "clip-e")
		if len(decisions) != 2 {
			t.Fatalf("decisions = %d, want 2", len(decisions))
		}
		if gate.Decision(decisions[0].Decision) != gate.DecisionRejected || decisions[0].DecidedBy.Valid {
			t.Errorf("first decision = %+v, want the automated rejection", decisions[0])
		}
		if gate.Decision(decisions[1].Decision) != gate.DecisionApproved || decisions[1].Reason != "song lyric, not abuse" {
			t.Errorf("second decision = %+v, want the human approval", decisions[1])
		}

		item := h.Item(t, "clip-e")
		if gate.Status(item.Status) != gate.StatusActive || !item.IsActive {
			t.Errorf("status = %s, active = %v, want active", item.Status, item.IsActive)
		}
		if h.Delivery.Creates() != 1 {
			t.Errorf("assets created = %d, want 1", h.Delivery.Creates())
		}
		h.AssertInvariant(t)
	})

	t.Run("takes down active content", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")
		if err := h.Service.Process(context.Background(), "clip-1"); err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		_, err := h.Service.Override(context.Background(), gate.OverrideRequest{
			ContentID: "clip-1",
			Moderator: "mod-7",
			Decision:  gate.DecisionRejected,
			Reason:    "reported: harassment",
		})
		if err != nil {
			t.Fatalf("Override() error = %v", err)
		}

		view, err := h.Service.GetStatus(context.Background(), "clip-1")
		if err != nil {
			t.Fatalf("GetStatus() error = %v", err)
		}
		if view.Status != gate.StatusRejected || view.IsActive || view.FlaggedReason != "reported: harassment" {
			t.Errorf("GetStatus() = %+v, want rejected and hidden", view)
		}
		if n := len(h.Decisions(t, "clip-1")); n != 2 {
			t.Errorf("decisions = %d, want 2", n)
		}
		h.AssertInvariant(t)
	})

	t.Run("rejects content waiting to publish", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")
		h.Delivery.FailCreates(errors.New("422 source not reachable"))
		if err := h.Service.Process(context.Background(), "clip-1"); err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		if _, err := h.Service.Override(context.Background(), gate.OverrideRequest{
			ContentID: "clip-1",
			Moderator: "mod-7",
			Decision:  gate.DecisionRejected,
			Reason:    "copyright claim",
		}); err != nil {
			t.Fatalf("Override() error = %v", err)
		}
		if err := h.Service.Process(context.Background(), "clip-1"); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if got := h.Item(t, "clip-1").Status; gate.Status(got) != gate.StatusRejected {
			t.Errorf("status = %s, want rejected", got)
		}
		if h.Delivery.Creates() != 0 {
			t.Error("rejected content was published")
		}
	})

	t.Run("approves stalled content with a verified copy", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")
		if err := h.Service.Upload(context.Background(), "clip-1"); err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		h.Clock.AgePast(gate.DefaultPolicy().StallTimeout)
		if _, err := h.Service.Sweep(context.Background()); err != nil {
			t.Fatalf("Sweep() error = %v", err)
		}
		if got := h.Item(t, "clip-1").Status; gate.Status(got) != gate.StatusFailed {
			t.Fatalf("status = %s, want failed", got)
		}

		if _, err := h.Service.Override(context.Background(), gate.OverrideRequest{
			ContentID: "clip-1",
			Moderator: "mod-7",
			Decision:  gate.DecisionApproved,
			Reason:    "reviewed manually",
		}); err != nil {
			t.Fatalf("Override() error = %v", err)
		}
		if got := h.Item(t, "clip-1").Status; gate.Status(got) != gate.StatusActive {
			t.Errorf("status = %s, want active", got)
		}
		h.AssertInvariant(t)
	})

	t.Run("refuses approval without a verified copy", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")
		h.Store.DropPuts = true
		if err := h.Service.Process(context.Background(), "clip-1"); err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		_, err := h.Service.Override(context.Background(), gate.OverrideRequest{
			ContentID: "clip-1",
			Moderator: "mod-7",
			Decision:  gate.DecisionApproved,
			Reason:    "looks fine",
		})
		if !errors.Is(err, gate.ErrOverrideNotAllowed) {
			t.Fatalf("Override() error = %v, want ErrOverrideNotAllowed", err)
		}
		if n := len(h.Decisions(t, "clip-1")); n != 0 {
			t.Errorf("decisions = %d, want 0", n)
		}
	})

	t.Run("refuses content still in the pipeline", func(t *testing.T) {
		h := testutil.NewHarness(t)
		stuckAnalyzing(t, h, "clip-1")

		_, err := h.Service.Override(context.Background(), gate.OverrideRequest{
			ContentID: "clip-1",
			Moderator: "mod-7",
			Decision:  gate.DecisionApproved,
			Reason:    "impatient",
		})
		if !errors.Is(err, gate.ErrOverrideNotAllowed) {
			t.Errorf("Override() error = %v, want ErrOverrideNotAllowed", err)
		}
	})

	t.Run("validates the request", func(t *testing.T) {
		h := testutil.NewHarness(t)
		h.StageVideo(t, "clip-1")

		tests := []gate.OverrideRequest{
			{ContentID: "clip-1", Decision: gate.DecisionApproved, Reason: "no moderator"},
			{ContentID: "clip-1", Moderator: "mod-7", Decision: gate.DecisionApproved},
			{ContentID: "clip-1", Moderator: "mod-7", Decision: "maybe", Reason: "bad decision"},
		}
		for _, req := range tests {
			if _, err := h.Service.Override(context.Background(), req); !errors.Is(err, gate.ErrOverrideNotAllowed) {
				t.Errorf("Override(%+v) error = %v, want ErrOverrideNotAllowed", req, err)
			}
		}
	})

	t.Run("unknown content", func(t *testing.T) {
		h := testutil.NewHarness(t)
		_, err := h.Service.Override(context.Background(), gate.OverrideRequest{
			ContentID: "nope",
			Moderator: "mod-7",
			Decision:  gate.DecisionRejected,
			Reason:    "spam",
		})
		if !errors.Is(err, gate.ErrNotFound) {
			t.Errorf("Override() error = %v, want ErrNotFound", err)
		}
	})
}

package testutil

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"modgate/internal/database"
	"modgate/internal/database/sqlc"
	"modgate/internal/gate"
	"modgate/internal/store"
)

// TestDenylist is the denylist of FastPolicy.
var TestDenylist = []string{"blorp", "snark weasel", "re:zorb(ed|ing)?"}

// FastPolicy returns a policy with immediate retries and short waits.
func FastPolicy() gate.Policy {
	p := gate.DefaultPolicy()
	fast := gate.RetryPolicy{MaxAttempts: 3, AttemptTimeout: 5 * time.Second}
	p.Retry = fast
	p.PublishRetry = fast
	p.AnalysisWait = 50 * time.Millisecond
	p.PollAttempts = 3
	p.PollInterval = 0
	p.Denylist = TestDenylist
	p.Allowlist = []string{"blorpington"}
	return p
}

// Harness is a gate.Service wired to in-memory collaborators the test can
// inspect and script.
type Harness struct {
	Service  *gate.Service
	DB       *database.SQLiteDatabase
	Staging  gate.StagingArea
	Backing  *store.MemoryStore
	Store    *LyingStore
	Analysis *ScriptedAnalysis
	Delivery *RecordingDelivery
	Clock    *StubClock
	IDs      *StubIDGenerator
}

// NewHarness builds a Harness around FastPolicy.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	return NewHarnessWithPolicy(t, FastPolicy())
}

// NewHarnessWithPolicy builds a Harness around policy.
func NewHarnessWithPolicy(t *testing.T, policy gate.Policy) *Harness {
	t.Helper()
	return newHarness(t, policy, NewTestStagingArea())
}

// NewSealedHarness builds a Harness whose staging area seals blobs at rest.
func NewSealedHarness(t *testing.T) *Harness {
	t.Helper()
	return newHarness(t, FastPolicy(), NewSealedStagingArea(t))
}

func newHarness(t *testing.T, policy gate.Policy, sa gate.StagingArea) *Harness {
	t.Helper()

	backing := NewTestStore()
	h := &Harness{
		DB:       NewTestDatabase(t),
		Staging:  sa,
		Backing:  backing,
		Store:    NewLyingStore(backing),
		Analysis: NewScriptedAnalysis(),
		Delivery: NewRecordingDelivery(),
		Clock:    FixedClock(),
		IDs:      NewStubIDGenerator(),
	}

	svc, err := gate.NewService(gate.Dependencies{
		Database: h.DB,
		Staging:  h.Staging,
		Store:    h.Store,
		Analysis: h.Analysis,
		Delivery: h.Delivery,
		Clock:    h.Clock,
		IDs:      h.IDs,
	}, policy)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	h.Service = svc
	return h
}

// VideoUpload returns valid metadata and content for a video item.
func VideoUpload(id string) (gate.UploadMetadata, []byte) {
	content := []byte(strings.Repeat("video-bytes/", 64))
	return gate.UploadMetadata{
		Version:    gate.MetadataVersion,
		ContentID:  id,
		OwnerID:    "user-42",
		Kind:       gate.KindVideo,
		Size:       int64(len(content)),
		DurationMS: 15_000,
		Category:   "music",
		Title:      "Evening session",
	}, content
}

// ImageUpload returns valid metadata and content for a profile image.
func ImageUpload(id string) (gate.UploadMetadata, []byte) {
	content := []byte(strings.Repeat("png/", 32))
	return gate.UploadMetadata{
		Version:   gate.MetadataVersion,
		ContentID: id,
		OwnerID:   "user-42",
		Kind:      gate.KindProfileImage,
		Size:      int64(len(content)),
	}, content
}

// Stage stages meta and content and fails the test on error.
func (h *Harness) Stage(t *testing.T, meta gate.UploadMetadata, content []byte) *sqlc.ContentItem {
	t.Helper()
	item, err := h.Service.Stage(context.Background(), meta, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	return item
}

// StageVideo stages a valid video under id.
func (h *Harness) StageVideo(t *testing.T, id string) *sqlc.ContentItem {
	t.Helper()
	meta, content := VideoUpload(id)
	return h.Stage(t, meta, content)
}

// Item loads id and fails the test if it does not exist.
func (h *Harness) Item(t *testing.T, id string) *sqlc.ContentItem {
	t.Helper()
	item, err := h.DB.FindContent(context.Background(), id)
	if err != nil {
		t.Fatalf("FindContent() error = %v", err)
	}
	if item == nil {
		t.Fatalf("content %s not found", id)
	}
	return item
}

// Decisions loads the decisions of id.
func (h *Harness) Decisions(t *testing.T, id string) []*sqlc.ModerationDecision {
	t.Helper()
	decisions, err := h.DB.ListDecisions(context.Background(), id)
	if err != nil {
		t.Fatalf("ListDecisions() error = %v", err)
	}
	return decisions
}

// AssertInvariant fails the test if any active item lacks an approving
// decision about its durable copy.
func (h *Harness) AssertInvariant(t *testing.T) {
	t.Helper()
	if err := h.Service.CheckInvariant(context.Background()); err != nil {
		t.Fatalf("CheckInvariant() error = %v", err)
	}
}

package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"modgate/internal/database/sqlc"
)

// Analyze runs every applicable modality on an uploaded item and records
// the automated decision.
func (s *Service) Analyze(ctx context.Context, id string) error {
	item, err := s.liveItem(ctx, id)
	if err != nil {
		return err
	}
	if Status(item.Status) != StatusUploaded {
		return fmt.Errorf("%w: cannot analyze %s content", ErrInvalidTransition, item.Status)
	}
	_, err = s.analyzeAndDecide(ctx, item)
	return err
}

func (s *Service) analyzeAndDecide(ctx context.Context, item *sqlc.ContentItem) (*sqlc.ContentItem, error) {
	defer s.observe("analyze", time.Now())

	var err error
	if Status(item.Status) == StatusUploaded {
		item, err = s.transition(ctx, NewStatusChange(item, StatusAnalyzing, "", s.now()))
		if err != nil {
			return nil, err
		}
	}
	if Status(item.Status) != StatusAnalyzing {
		return nil, fmt.Errorf("%w: cannot analyze %s content", ErrInvalidTransition, item.Status)
	}
	if !item.DurableUri.Valid || item.DurableUri.String == "" {
		return s.fail(ctx, item, ReasonStorageVerificationFailed)
	}

	results := s.RunModalities(ctx, Kind(item.Kind), item.DurableUri.String)
	if ctx.Err() != nil {
		// A cancelled run is not a verdict. The sweeper picks the item up later.
		return nil, ctx.Err()
	}
	return s.decide(ctx, item, results)
}

// RunModalities analyzes uri with every modality applicable to kind, in
// parallel, and waits for all of them to finish or give up.
func (s *Service) RunModalities(ctx context.Context, kind Kind, uri string) []ModalityResult {
	modalities := ApplicableModalities(kind)
	results := make([]ModalityResult, len(modalities))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range modalities {
		g.Go(func() error {
			results[i] = s.runModality(gctx, m, uri)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runModality submits and awaits one modality under the retry policy. Policy
// rejections end the retries at once; anything else left unresolved becomes
// inconclusive.
func (s *Service) runModality(ctx context.Context, m Modality, uri string) ModalityResult {
	var result ModalityResult
	attempts, err := s.policy.Retry.Do(ctx, func(ctx context.Context) error {
		job, err := s.analysis.Submit(ctx, uri, FeaturesFor(m))
		if err != nil {
			return fmt.Errorf("failed to submit: %w", err)
		}
		annotations, err := s.analysis.Await(ctx, job, s.policy.AnalysisWait)
		if err != nil {
			return fmt.Errorf("failed to await job %s: %w", job.ID, err)
		}
		result, err = s.evaluate(m, annotations)
		return err
	})

	var rejection *PolicyRejection
	switch {
	case err == nil:
		result.Verdict = VerdictClear
	case errors.As(err, &rejection):
		result.Verdict = VerdictReject
		result.Reason = rejection.Error()
	default:
		result = ModalityResult{
			Verdict: VerdictInconclusive,
			Reason:  fmt.Sprintf("%s: %v after %d attempts: %v", m, ErrInconclusive, attempts, err),
		}
	}
	result.Modality = m
	result.Attempts = attempts

	s.metrics.ModalityVerdict(m, result.Verdict)
	s.logger.Info("modality analyzed", "modality", m, "uri", uri, "verdict", result.Verdict, "attempts", attempts, "reason", result.Reason)
	return result
}

// evaluate turns raw annotations into a modality result. A violation is
// returned as a *PolicyRejection alongside the populated result.
func (s *Service) evaluate(m Modality, annotations *Annotations) (ModalityResult, error) {
	if annotations == nil {
		return ModalityResult{}, fmt.Errorf("%s analysis returned no annotations", m)
	}
	switch m {
	case ModalityVideo:
		return evaluateVideo(annotations, s.policy.Gesture)
	case ModalityAudio:
		return evaluateAudio(annotations, s.terms)
	case ModalityImage:
		return evaluateImage(annotations)
	}
	return ModalityResult{}, fmt.Errorf("unknown modality %q", m)
}

// decide records the automated decision and moves the item out of analyzing
// in one transaction. Losing the race to another worker yields
// ErrConcurrencyConflict and writes nothing.
func (s *Service) decide(ctx context.Context, item *sqlc.ContentItem, results []ModalityResult) (*sqlc.ContentItem, error) {
	decision, reason := Aggregate(Kind(item.Kind), results)

	payload, err := EncodeModalityResults(results)
	if err != nil {
		return nil, err
	}

	now := s.now()
	flagged := ""
	if decision == DecisionRejected {
		flagged = reason
	}
	change := NewStatusChange(item, decision.Status(), flagged, now)
	row := &sqlc.ModerationDecision{
		ContentID:       item.ID,
		Decision:        string(decision),
		Reason:          reason,
		DurableUri:      item.DurableUri.String,
		ModalityResults: payload,
		CreatedAt:       now,
	}
	updated, recorded, err := s.database.RecordDecision(ctx, change, row)
	if err != nil {
		return nil, err
	}

	s.metrics.DecisionRecorded(decision, true)
	s.logger.Info("content decided", "content_id", item.ID, "decision", decision, "decision_id", recorded.ID, "reason", reason)
	return updated, nil
}

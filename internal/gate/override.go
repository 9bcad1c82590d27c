package gate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"modgate/internal/database/sqlc"
)

// OverrideRequest is an authorized moderator's decision on one item.
type OverrideRequest struct {
	ContentID string   `validate:"required"`
	Moderator string   `validate:"required,max=128"`
	Decision  Decision `validate:"required,oneof=approved rejected"`
	Reason    string   `validate:"required,max=1024"`
}

// Override appends a human decision and applies it. An approval needs a
// verified durable copy and continues into publishing; a rejection takes the
// item down. Items still moving through the pipeline cannot be overridden.
func (s *Service) Override(ctx context.Context, req OverrideRequest) (*sqlc.ModerationDecision, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			problems := make([]FieldProblem, 0, len(verrs))
			for _, fe := range verrs {
				problems = append(problems, FieldProblem{Field: fe.Field(), Rule: fe.Tag()})
			}
			return nil, fmt.Errorf("%w: %w", ErrOverrideNotAllowed, &StagingValidationError{Problems: problems})
		}
		return nil, fmt.Errorf("failed to validate override: %w", err)
	}

	item, err := s.liveItem(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	from := Status(item.Status)
	to := req.Decision.Status()
	if err := ValidateOverride(from, to); err != nil {
		return nil, err
	}
	if req.Decision == DecisionApproved && (!item.DurableUri.Valid || item.DurableUri.String == "") {
		return nil, fmt.Errorf("%w: %s has no verified durable copy", ErrOverrideNotAllowed, item.ID)
	}

	now := s.now()
	flagged := ""
	if req.Decision == DecisionRejected {
		flagged = req.Reason
	}
	row := &sqlc.ModerationDecision{
		ContentID:       item.ID,
		Decision:        string(req.Decision),
		Reason:          req.Reason,
		DecidedBy:       sql.NullString{String: req.Moderator, Valid: true},
		DurableUri:      item.DurableUri.String,
		ModalityResults: "[]",
		CreatedAt:       now,
	}
	updated, decision, err := s.database.RecordDecision(ctx, NewStatusChange(item, to, flagged, now), row)
	if err != nil {
		return nil, err
	}

	s.metrics.DecisionRecorded(req.Decision, false)
	s.logger.Info("content overridden", "content_id", item.ID, "from", from, "to", to, "moderator", req.Moderator, "decision_id", decision.ID)

	if req.Decision == DecisionApproved {
		if err := s.settle(item.ID, s.advance(ctx, updated)); err != nil {
			return decision, err
		}
	}
	return decision, nil
}

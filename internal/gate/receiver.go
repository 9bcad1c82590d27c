package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"modgate/internal/database/sqlc"
)

// ErrSizeMismatch is returned by staging areas when the stream length differs
// from the declared size.
var ErrSizeMismatch = errors.New("content size does not match declared size")

// Stage validates upload metadata, writes the bytes to the staging area and
// records the content item as staged. Staging an id that already exists
// returns the existing item unchanged and writes nothing.
func (s *Service) Stage(ctx context.Context, meta UploadMetadata, content io.Reader) (*sqlc.ContentItem, error) {
	if err := s.validateUpload(meta); err != nil {
		return nil, err
	}

	id := meta.ContentID
	if id == "" {
		id = s.idgen.New()
	}

	existing, err := s.database.FindContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up content %s: %w", id, err)
	}
	if existing != nil {
		if existing.DeletedAt.Valid {
			return nil, fmt.Errorf("staging %s: %w", id, ErrContentDeleted)
		}
		s.logger.Debug("content already staged", "content_id", id, "status", existing.Status)
		return existing, nil
	}

	blob, err := s.staging.Put(id, content, meta.Size)
	if err != nil {
		if errors.Is(err, ErrSizeMismatch) {
			return nil, &StagingValidationError{Problems: []FieldProblem{{Field: "Size", Rule: err.Error()}}}
		}
		return nil, fmt.Errorf("failed to stage content %s: %w", id, err)
	}

	now := s.now()
	item := &sqlc.ContentItem{
		ID:              id,
		OwnerID:         meta.OwnerID,
		Kind:            string(meta.Kind),
		Category:        meta.Category,
		Title:           meta.Title,
		StagingPath:     blob.Path,
		Checksum:        blob.Checksum,
		Size:            blob.Size,
		DurationMs:      meta.DurationMS,
		MetadataVersion: int64(meta.Version),
		Status:          string(StatusStaged),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	created, err := s.database.InsertContentIfAbsent(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to record staged content %s: %w", id, err)
	}
	if !created {
		// A concurrent Stage with the same id won the insert.
		winner, err := s.database.FindContent(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up content %s: %w", id, err)
		}
		if winner == nil {
			return nil, fmt.Errorf("staging %s: %w", id, ErrNotFound)
		}
		return winner, nil
	}

	s.metrics.ContentStaged(meta.Kind)
	s.logger.Info("content staged", "content_id", id, "kind", meta.Kind, "size", blob.Size, "checksum", blob.Checksum)
	return item, nil
}

// validateUpload checks struct rules first, then the configured bounds.
func (s *Service) validateUpload(meta UploadMetadata) error {
	var problems []FieldProblem
	if err := s.validate.Struct(meta); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate upload metadata: %w", err)
		}
		for _, fe := range verrs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			problems = append(problems, FieldProblem{Field: fe.Field(), Rule: rule})
		}
		return &StagingValidationError{Problems: problems}
	}

	if s.policy.MaxUploadSize > 0 && meta.Size > s.policy.MaxUploadSize {
		problems = append(problems, FieldProblem{Field: "Size", Rule: fmt.Sprintf("exceeds maximum of %d bytes", s.policy.MaxUploadSize)})
	}
	duration := time.Duration(meta.DurationMS) * time.Millisecond
	if meta.Kind.IsStill() {
		if meta.DurationMS != 0 {
			problems = append(problems, FieldProblem{Field: "DurationMS", Rule: "must be 0 for still images"})
		}
	} else {
		if meta.DurationMS <= 0 {
			problems = append(problems, FieldProblem{Field: "DurationMS", Rule: "required for video content"})
		}
		if s.policy.MaxDuration > 0 && duration > s.policy.MaxDuration {
			problems = append(problems, FieldProblem{Field: "DurationMS", Rule: fmt.Sprintf("exceeds maximum of %s", s.policy.MaxDuration)})
		}
	}
	if len(problems) > 0 {
		return &StagingValidationError{Problems: problems}
	}
	return nil
}

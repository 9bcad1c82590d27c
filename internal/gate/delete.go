package gate

import (
	"context"
	"fmt"
)

// Delete tombstones an item on behalf of its owner or an admin. It is taken
// offline at once; in-flight work notices at its next conditional write and
// stops. Decisions are kept for audit.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.database.MarkDeleted(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if err := s.staging.Remove(id); err != nil {
		s.logger.Warn("failed to remove staged content", "content_id", id, "error", err)
	}
	s.logger.Info("content deleted", "content_id", id)
	return nil
}

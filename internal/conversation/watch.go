package conversation

import (
	"context"
	"log/slog"

	"e2estore/internal/domain"

	"github.com/google/uuid"
)

// Watch reads the conversation, hands the result to fn and reads it again
// every time the store reports an insert. Bursts of inserts collapse into a
// single re-read. Watch returns nil once ctx is done.
func (s *Service) Watch(ctx context.Context, viewer domain.Role, conversationID uuid.UUID, fn func([]Message)) error {
	if _, err := s.conversationFor(ctx, viewer, conversationID); err != nil {
		return err
	}

	dirty := make(chan struct{}, 1)
	// Subscribe before the first read so no insert falls in between.
	stop, err := s.store.Subscribe(ctx, conversationID, func(uuid.UUID) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer stop()

	msgs, err := s.Read(ctx, viewer, conversationID)
	if err != nil {
		return err
	}
	fn(msgs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-dirty:
			msgs, err := s.Read(ctx, viewer, conversationID)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Warn("conversation refetch failed", "conversation_id", conversationID, "error", err)
				continue
			}
			fn(msgs)
		}
	}
}

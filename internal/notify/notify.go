// Package notify fans out "record appended" events per conversation.
// Delivery is at-least-once; subscribers re-read the conversation rather than
// trusting event contents.
package notify

import (
	"context"

	"github.com/google/uuid"
)

type Event struct {
	ConversationID uuid.UUID
	RecordID       uuid.UUID
}

type Broker interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, conversationID uuid.UUID, fn func(Event)) (func(), error)
}

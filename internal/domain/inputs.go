package domain

import "github.com/google/uuid"

// AppendInput is everything the envelope store needs to persist one record.
type AppendInput struct {
	ConversationID  uuid.UUID
	Sender          Sender
	Kind            RecordKind
	Envelope        string
	SenderPublicKey string
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// OperatorIdentityID is the primary key of the single operator identity row.
const OperatorIdentityID = 1

type Customer struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PublicKey     string    `gorm:"type:text;not null"`
	AuthAccountID *string   `gorm:"type:text;uniqueIndex"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime"`
}

type OperatorIdentity struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	PublicKey string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}

type ConversationKind string

const (
	ConversationSupport ConversationKind = "support"
	ConversationOrder   ConversationKind = "order"
)

func (k ConversationKind) Valid() bool {
	return k == ConversationSupport || k == ConversationOrder
}

type Conversation struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey"`
	CustomerID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Kind       ConversationKind `gorm:"type:text;not null"`
	CreatedAt  time.Time        `gorm:"not null;autoCreateTime"`
}

type RecordKind string

const (
	RecordMessage      RecordKind = "message"
	RecordOrderDetails RecordKind = "order_details"
)

func (k RecordKind) Valid() bool {
	return k == RecordMessage || k == RecordOrderDetails
}

// Record is one append-only ciphertext entry of a conversation.
// SenderPublicKey is a copy of the sender's public key taken when the record
// was written, so later rotations do not change which key decrypts it.
type Record struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ConversationID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_records_conversation_created,priority:1"`
	Sender          Sender     `gorm:"type:text;not null"`
	Kind            RecordKind `gorm:"type:text;not null"`
	Envelope        string     `gorm:"type:text;not null"`
	SenderPublicKey *string    `gorm:"type:text"`
	CreatedAt       time.Time  `gorm:"not null;index:idx_records_conversation_created,priority:2"`
}

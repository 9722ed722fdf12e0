package dto

import "time"

type OpenConversationRequest struct {
	CustomerID string `json:"customerId"`
	Kind       string `json:"kind"`
}

type ConversationResponse struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"createdAt"`
}

type AppendRecordRequest struct {
	Sender          string `json:"sender"`
	Kind            string `json:"kind,omitempty"`
	Envelope        string `json:"envelope"`
	SenderPublicKey string `json:"senderPublicKey,omitempty"`
}

type RecordResponse struct {
	ID              string    `json:"id"`
	ConversationID  string    `json:"conversationId"`
	Sender          string    `json:"sender"`
	Kind            string    `json:"kind"`
	Envelope        string    `json:"envelope"`
	SenderPublicKey *string   `json:"senderPublicKey,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Event types carried on the conversation events websocket.
const (
	EventRecord = "record"
	EventPing   = "ping"
)

type EventFrame struct {
	Type     string `json:"type"`
	RecordID string `json:"recordId,omitempty"`
}

package dto

import (
	"fmt"

	"e2estore/internal/domain"

	"github.com/google/uuid"
)

func FromCustomer(c domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            c.ID.String(),
		PublicKey:     c.PublicKey,
		AuthAccountID: c.AuthAccountID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func FromConversation(c domain.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:         c.ID.String(),
		CustomerID: c.CustomerID.String(),
		Kind:       string(c.Kind),
		CreatedAt:  c.CreatedAt,
	}
}

func (c ConversationResponse) Domain() (domain.Conversation, error) {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("conversation id: %w", err)
	}
	customerID, err := uuid.Parse(c.CustomerID)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("customer id: %w", err)
	}
	return domain.Conversation{ID: id, CustomerID: customerID, Kind: domain.ConversationKind(c.Kind), CreatedAt: c.CreatedAt}, nil
}

func FromRecord(r domain.Record) RecordResponse {
	return RecordResponse{
		ID:              r.ID.String(),
		ConversationID:  r.ConversationID.String(),
		Sender:          string(r.Sender),
		Kind:            string(r.Kind),
		Envelope:        r.Envelope,
		SenderPublicKey: r.SenderPublicKey,
		CreatedAt:       r.CreatedAt,
	}
}

func (r RecordResponse) Domain() (domain.Record, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return domain.Record{}, fmt.Errorf("record id: %w", err)
	}
	convID, err := uuid.Parse(r.ConversationID)
	if err != nil {
		return domain.Record{}, fmt.Errorf("conversation id: %w", err)
	}
	return domain.Record{
		ID:              id,
		ConversationID:  convID,
		Sender:          domain.Sender(r.Sender),
		Kind:            domain.RecordKind(r.Kind),
		Envelope:        r.Envelope,
		SenderPublicKey: r.SenderPublicKey,
		CreatedAt:       r.CreatedAt,
	}, nil
}

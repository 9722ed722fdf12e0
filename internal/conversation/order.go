package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"e2estore/internal/domain"

	"github.com/google/uuid"
)

// OrderDetails is the sensitive part of an order, stored only as ciphertext.
type OrderDetails struct {
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// SendOrderDetails encrypts details into an order_details record.
func (s *Service) SendOrderDetails(ctx context.Context, viewer domain.Role, conversationID uuid.UUID, details OrderDetails) (domain.Record, error) {
	body, err := json.Marshal(details)
	if err != nil {
		return domain.Record{}, err
	}
	return s.send(ctx, viewer, conversationID, domain.RecordOrderDetails, string(body))
}

// OrderDetails decodes a decrypted order_details message.
func (m Message) OrderDetails() (OrderDetails, error) {
	var d OrderDetails
	if m.Record.Kind != domain.RecordOrderDetails {
		return d, fmt.Errorf("record %s is a %s, not order details", m.Record.ID, m.Record.Kind)
	}
	if m.Outcome != Decrypted {
		return d, fmt.Errorf("record %s: %s", m.Record.ID, m.Outcome)
	}
	if err := json.Unmarshal([]byte(m.Text), &d); err != nil {
		return d, fmt.Errorf("record %s: order details: %w", m.Record.ID, err)
	}
	return d, nil
}

package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sender identifies which side of a conversation wrote a record.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderOperator Sender = "operator"
)

func (s Sender) Valid() bool {
	return s == SenderCustomer || s == SenderOperator
}

// Role is either the operator or one specific customer.
type Role struct {
	operator   bool
	customerID uuid.UUID
}

func OperatorRole() Role { return Role{operator: true} }

func CustomerRole(id uuid.UUID) Role { return Role{customerID: id} }

func (r Role) IsOperator() bool { return r.operator }

// CustomerID returns the customer id and false for the operator role.
func (r Role) CustomerID() (uuid.UUID, bool) {
	if r.operator {
		return uuid.Nil, false
	}
	return r.customerID, true
}

// Sender is the record sender value written when this role sends.
func (r Role) Sender() Sender {
	if r.operator {
		return SenderOperator
	}
	return SenderCustomer
}

// Counterpart returns the other party of a conversation owned by customerID.
func (r Role) Counterpart(customerID uuid.UUID) Role {
	if r.operator {
		return CustomerRole(customerID)
	}
	return OperatorRole()
}

// String renders "operator" or "customer:<id>"; ParseRole reverses it.
func (r Role) String() string {
	if r.operator {
		return "operator"
	}
	return "customer:" + r.customerID.String()
}

func ParseRole(s string) (Role, error) {
	if s == "operator" {
		return OperatorRole(), nil
	}
	raw, ok := strings.CutPrefix(s, "customer:")
	if !ok {
		return Role{}, fmt.Errorf("unknown role %q", s)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return Role{}, fmt.Errorf("invalid customer role id: %w", err)
	}
	return CustomerRole(id), nil
}

package identity

import (
	"context"

	"github.com/google/uuid"
)

// Directory is the identity persistence collaborator. It holds public keys
// only. Lookups of absent identities return an error matching
// domain.ErrNotFound.
type Directory interface {
	RegisterCustomer(ctx context.Context, publicKey, authAccountID string) (uuid.UUID, error)
	CustomerPublicKey(ctx context.Context, id uuid.UUID) (string, error)
	UpdateCustomerPublicKey(ctx context.Context, id uuid.UUID, publicKey string) error
	LinkAuthAccount(ctx context.Context, id uuid.UUID, authAccountID string) error
	CustomerByAuthAccount(ctx context.Context, authAccountID string) (uuid.UUID, error)
	OperatorPublicKey(ctx context.Context) (string, error)
	SetOperatorPublicKey(ctx context.Context, publicKey string) error
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"e2estore/internal/cryptocore"
	"e2estore/internal/domain"
	"e2estore/internal/keyring"

	"github.com/google/uuid"
)

// EnsureCustomer makes sure this device has a usable customer identity and
// returns it. authAccountID may be empty for anonymous customers.
//
// A device that remembers its customer id keeps it; a lost private key is
// regenerated and republished under the same id. A device with no id adopts
// the customer already linked to authAccountID before falling back to
// registering a new one.
func (s *Store) EnsureCustomer(ctx context.Context, authAccountID string) (domain.Role, error) {
	auth := strings.TrimSpace(authAccountID)

	id, err := s.keyring.CustomerID(ctx)
	switch {
	case err == nil:
		role, err := s.resumeCustomer(ctx, id, auth)
		if !errors.Is(err, domain.ErrNotFound) {
			return role, err
		}
		slog.Warn("local customer id unknown to directory, registering again", "customer_id", id)
	case !errors.Is(err, keyring.ErrNotFound):
		return domain.Role{}, err
	}

	if auth != "" {
		id, err := s.dir.CustomerByAuthAccount(ctx, auth)
		switch {
		case err == nil:
			return s.adoptCustomer(ctx, id)
		case !errors.Is(err, domain.ErrNotFound):
			return domain.Role{}, err
		}
	}
	return s.registerCustomer(ctx, auth)
}

func (s *Store) resumeCustomer(ctx context.Context, id uuid.UUID, auth string) (domain.Role, error) {
	role := domain.CustomerRole(id)
	_, ok, err := s.LocalPrivateKey(ctx, role)
	if err != nil {
		return domain.Role{}, err
	}
	if !ok {
		if _, err := s.Rotate(ctx, role); err != nil {
			return domain.Role{}, err
		}
		slog.Info("customer key regenerated", "customer_id", id)
	}
	if auth != "" {
		if err := s.dir.LinkAuthAccount(ctx, id, auth); err != nil {
			return domain.Role{}, err
		}
	}
	return role, nil
}

func (s *Store) adoptCustomer(ctx context.Context, id uuid.UUID) (domain.Role, error) {
	role := domain.CustomerRole(id)
	if err := s.keyring.SetCustomerID(ctx, id); err != nil {
		return domain.Role{}, err
	}
	_, ok, err := s.LocalPrivateKey(ctx, role)
	if err != nil {
		return domain.Role{}, err
	}
	if !ok {
		if _, err := s.Rotate(ctx, role); err != nil {
			return domain.Role{}, err
		}
	}
	slog.Info("customer identity adopted from auth account", "customer_id", id)
	return role, nil
}

func (s *Store) registerCustomer(ctx context.Context, auth string) (domain.Role, error) {
	kp, err := cryptocore.GenerateKeyPair()
	if err != nil {
		return domain.Role{}, err
	}
	id, err := s.dir.RegisterCustomer(ctx, kp.PublicKey, auth)
	if err != nil {
		return domain.Role{}, fmt.Errorf("register customer: %w", err)
	}
	role := domain.CustomerRole(id)
	if err := s.keyring.SetPrivateKey(ctx, role, kp.PrivateKey); err != nil {
		return domain.Role{}, err
	}
	if err := s.keyring.SetCustomerID(ctx, id); err != nil {
		return domain.Role{}, err
	}
	slog.Info("customer registered", "customer_id", id)
	return role, nil
}

// EnsureOperator generates the operator key pair when this device has none
// and makes sure the directory publishes the matching public key.
func (s *Store) EnsureOperator(ctx context.Context) error {
	role := domain.OperatorRole()
	priv, ok, err := s.LocalPrivateKey(ctx, role)
	if err != nil {
		return err
	}
	if !ok {
		_, err := s.Rotate(ctx, role)
		return err
	}

	want, err := cryptocore.PublicKeyOf(priv)
	if err != nil {
		return err
	}
	s.operatorKey.Invalidate()
	published, found, err := s.OperatorPublicKey(ctx)
	if err != nil {
		return err
	}
	if found && published == want {
		return nil
	}
	slog.Info("republishing operator public key", "previously_published", found)
	return s.SetOperatorPublicKey(ctx, want)
}

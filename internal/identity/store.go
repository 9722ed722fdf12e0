// Package identity owns key lifecycle for both identity classes: the local
// private key of whoever runs this process and the published public keys of
// every party.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"e2estore/internal/cryptocore"
	"e2estore/internal/domain"
	"e2estore/internal/keyring"

	"github.com/google/uuid"
)

type Store struct {
	keyring     keyring.Keyring
	dir         Directory
	operatorKey *KeyCache
}

func NewStore(kr keyring.Keyring, dir Directory) *Store {
	return &Store{keyring: kr, dir: dir, operatorKey: &KeyCache{}}
}

func (s *Store) LocalPrivateKey(ctx context.Context, role domain.Role) (string, bool, error) {
	key, err := s.keyring.PrivateKey(ctx, role)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return key, true, nil
}

// SetLocalPrivateKey stores a private key after checking that it parses.
func (s *Store) SetLocalPrivateKey(ctx context.Context, role domain.Role, privateKey string) error {
	if _, err := cryptocore.PublicKeyOf(privateKey); err != nil {
		return err
	}
	return s.keyring.SetPrivateKey(ctx, role, privateKey)
}

func (s *Store) OperatorPublicKey(ctx context.Context) (string, bool, error) {
	if key, ok := s.operatorKey.Get(); ok {
		return key, true, nil
	}
	gen := s.operatorKey.Generation()
	key, err := s.dir.OperatorPublicKey(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	s.operatorKey.Fill(gen, key)
	return key, true, nil
}

// SetOperatorPublicKey publishes the operator key. The cache is dropped on
// both sides of the write so no reader keeps a superseded key.
func (s *Store) SetOperatorPublicKey(ctx context.Context, publicKey string) error {
	if err := cryptocore.ValidatePublicKey(publicKey); err != nil {
		return err
	}
	s.operatorKey.Invalidate()
	if err := s.dir.SetOperatorPublicKey(ctx, publicKey); err != nil {
		return err
	}
	s.operatorKey.Invalidate()
	return nil
}

// CustomerPublicKey always asks the directory; customer keys are not cached.
func (s *Store) CustomerPublicKey(ctx context.Context, id uuid.UUID) (string, bool, error) {
	key, err := s.dir.CustomerPublicKey(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return key, true, nil
}

// PublicKey returns the currently published key of role.
func (s *Store) PublicKey(ctx context.Context, role domain.Role) (string, bool, error) {
	if id, ok := role.CustomerID(); ok {
		return s.CustomerPublicKey(ctx, id)
	}
	return s.OperatorPublicKey(ctx)
}

func (s *Store) publish(ctx context.Context, role domain.Role, publicKey string) error {
	if id, ok := role.CustomerID(); ok {
		return s.dir.UpdateCustomerPublicKey(ctx, id, publicKey)
	}
	return s.SetOperatorPublicKey(ctx, publicKey)
}

// Rotate generates a new key pair for role, publishes the public half and
// then replaces the local private key. Records that only the old key can
// open stay readable to the counterpart through their snapshots.
func (s *Store) Rotate(ctx context.Context, role domain.Role) (cryptocore.KeyPair, error) {
	kp, err := cryptocore.GenerateKeyPair()
	if err != nil {
		return cryptocore.KeyPair{}, err
	}
	if err := s.publish(ctx, role, kp.PublicKey); err != nil {
		return cryptocore.KeyPair{}, fmt.Errorf("publish %s key: %w", role, err)
	}
	if err := s.keyring.SetPrivateKey(ctx, role, kp.PrivateKey); err != nil {
		return cryptocore.KeyPair{}, err
	}
	slog.Info("key rotated", "role", role.String())
	return kp, nil
}

// ImportPrivateKey installs a previously exported private key and
// republishes its public half.
func (s *Store) ImportPrivateKey(ctx context.Context, role domain.Role, privateKey string) error {
	publicKey, err := cryptocore.PublicKeyOf(privateKey)
	if err != nil {
		return err
	}
	if err := s.publish(ctx, role, publicKey); err != nil {
		return fmt.Errorf("publish %s key: %w", role, err)
	}
	return s.keyring.SetPrivateKey(ctx, role, privateKey)
}

func (s *Store) ExportPrivateKey(ctx context.Context, role domain.Role) (string, error) {
	key, ok, err := s.LocalPrivateKey(ctx, role)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: no local key for %s", keyring.ErrNotFound, role)
	}
	return key, nil
}

// Package keyring keeps a device's private keys and its customer id. Private
// keys are written here and nowhere else.
package keyring

import (
	"context"
	"errors"
	"sync"

	"e2estore/internal/domain"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("keyring: not found")

type Keyring interface {
	PrivateKey(ctx context.Context, role domain.Role) (string, error)
	SetPrivateKey(ctx context.Context, role domain.Role, privateKey string) error
	DeletePrivateKey(ctx context.Context, role domain.Role) error
	CustomerID(ctx context.Context) (uuid.UUID, error)
	SetCustomerID(ctx context.Context, id uuid.UUID) error
}

// Memory is a Keyring that forgets everything when the process exits.
type Memory struct {
	mu         sync.RWMutex
	keys       map[string]string
	customerID uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{keys: make(map[string]string)}
}

func (m *Memory) PrivateKey(_ context.Context, role domain.Role) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[role.String()]
	if !ok {
		return "", ErrNotFound
	}
	return key, nil
}

func (m *Memory) SetPrivateKey(_ context.Context, role domain.Role, privateKey string) error {
	m.mu.Lock()
	m.keys[role.String()] = privateKey
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeletePrivateKey(_ context.Context, role domain.Role) error {
	m.mu.Lock()
	delete(m.keys, role.String())
	m.mu.Unlock()
	return nil
}

func (m *Memory) CustomerID(context.Context) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.customerID == uuid.Nil {
		return uuid.Nil, ErrNotFound
	}
	return m.customerID, nil
}

func (m *Memory) SetCustomerID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.customerID = id
	m.mu.Unlock()
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"e2estore/internal/conversation"
	"e2estore/internal/domain"
	"e2estore/internal/identity"
	"e2estore/internal/keyring"
	"e2estore/pkg/storeclient"

	"github.com/google/uuid"
)

// session is everything a command needs once the profile is loaded.
type session struct {
	profile Profile
	keyring *keyring.BoltKeyring
	client  *storeclient.Client
	ids     *identity.Store
	convs   *conversation.Service
}

func openSession(p Profile) (*session, error) {
	if p.KeyringPath == "" {
		return nil, errors.New("profile has no keyring_path; run e2ectl init first")
	}
	kr, err := keyring.OpenBolt(p.KeyringPath)
	if err != nil {
		return nil, err
	}
	server := p.Server
	if server == "" {
		server = defaultServer
	}
	client := storeclient.New(server, storeclient.WithOperatorToken(p.OperatorToken))
	ids := identity.NewStore(kr, client)
	return &session{
		profile: p,
		keyring: kr,
		client:  client,
		ids:     ids,
		convs:   conversation.New(client, ids, conversation.Options{Concurrency: p.Concurrency}),
	}, nil
}

func (s *session) Close() error {
	return s.keyring.Close()
}

// role is the identity this device acts as.
func (s *session) role(ctx context.Context) (domain.Role, error) {
	switch s.profile.Role {
	case RoleOperator:
		return domain.OperatorRole(), nil
	case RoleCustomer:
		id, err := s.keyring.CustomerID(ctx)
		if errors.Is(err, keyring.ErrNotFound) {
			return domain.Role{}, errors.New("no customer identity on this device; run e2ectl init customer")
		}
		if err != nil {
			return domain.Role{}, err
		}
		return domain.CustomerRole(id), nil
	default:
		return domain.Role{}, fmt.Errorf("profile role %q must be %s or %s", s.profile.Role, RoleCustomer, RoleOperator)
	}
}

func parseConversationID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid conversation id %q", arg)
	}
	return id, nil
}

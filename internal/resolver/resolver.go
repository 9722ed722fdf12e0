// Package resolver picks the public key a viewer combines with their own
// private key to open a stored record.
//
// A record is sealed with ECDH(sender private, recipient public). The sender
// reading their own record therefore needs the recipient's key, and the
// recipient needs the sender's key. Candidates are tried in order and the
// first one that yields a key wins.
package resolver

import (
	"context"
	"fmt"

	"e2estore/internal/domain"

	"github.com/google/uuid"
)

type Candidate int

const (
	// SnapshotKey is the sender public key stored alongside the record.
	SnapshotKey Candidate = iota + 1
	// CurrentCounterpartKey is the key the other party publishes right now.
	CurrentCounterpartKey
)

func (c Candidate) String() string {
	switch c {
	case SnapshotKey:
		return "snapshot"
	case CurrentCounterpartKey:
		return "current_counterpart"
	default:
		return fmt.Sprintf("candidate(%d)", int(c))
	}
}

type Outcome int

const (
	MissingKey Outcome = iota
	Resolved
)

type Resolution struct {
	Outcome   Outcome
	PublicKey string
	Source    Candidate
}

// KeyLookup returns the currently published key of a role. identity.Store
// satisfies it.
type KeyLookup interface {
	PublicKey(ctx context.Context, role domain.Role) (string, bool, error)
}

type Resolver struct {
	keys KeyLookup
}

func New(keys KeyLookup) *Resolver {
	return &Resolver{keys: keys}
}

// Candidates lists the key sources for viewer reading a record written by
// sender, in evaluation order.
func Candidates(viewer domain.Role, sender domain.Sender) []Candidate {
	if viewer.Sender() == sender {
		// Own record: the snapshot is our own key and is useless here.
		return []Candidate{CurrentCounterpartKey}
	}
	return []Candidate{SnapshotKey, CurrentCounterpartKey}
}

// Resolve finds the public key viewer needs for rec in a conversation owned
// by customerID. An error means a lookup failed, not that no key exists.
func (r *Resolver) Resolve(ctx context.Context, viewer domain.Role, customerID uuid.UUID, rec domain.Record) (Resolution, error) {
	for _, c := range Candidates(viewer, rec.Sender) {
		switch c {
		case SnapshotKey:
			if rec.SenderPublicKey != nil && *rec.SenderPublicKey != "" {
				return Resolution{Outcome: Resolved, PublicKey: *rec.SenderPublicKey, Source: c}, nil
			}
		case CurrentCounterpartKey:
			key, ok, err := r.keys.PublicKey(ctx, viewer.Counterpart(customerID))
			if err != nil {
				return Resolution{}, fmt.Errorf("resolve %s key: %w", c, err)
			}
			if ok {
				return Resolution{Outcome: Resolved, PublicKey: key, Source: c}, nil
			}
		}
	}
	return Resolution{Outcome: MissingKey}, nil
}

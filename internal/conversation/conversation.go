// Package conversation encrypts outgoing records and decrypts conversation
// history for one viewer.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"e2estore/internal/cryptocore"
	"e2estore/internal/domain"
	"e2estore/internal/observability/metrics"
	"e2estore/internal/resolver"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	PlaceholderMissingKey    = "[key unavailable]"
	PlaceholderDecryptFailed = "[unable to decrypt]"

	DefaultConcurrency = 8
)

// EnvelopeStore is the persistence collaborator for conversations and their
// append-only records. Subscribe delivery is at-least-once and carries only
// the new record id; consumers re-read the conversation.
type EnvelopeStore interface {
	OpenConversation(ctx context.Context, customerID uuid.UUID, kind domain.ConversationKind) (domain.Conversation, error)
	Conversation(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	Conversations(ctx context.Context, customerID uuid.UUID) ([]domain.Conversation, error)
	Append(ctx context.Context, in domain.AppendInput) (domain.Record, error)
	ListOrdered(ctx context.Context, conversationID uuid.UUID) ([]domain.Record, error)
	Subscribe(ctx context.Context, conversationID uuid.UUID, onInsert func(recordID uuid.UUID)) (func(), error)
}

// Keys is the slice of identity.Store this package needs.
type Keys interface {
	LocalPrivateKey(ctx context.Context, role domain.Role) (string, bool, error)
	PublicKey(ctx context.Context, role domain.Role) (string, bool, error)
}

type Outcome int

const (
	Decrypted Outcome = iota
	MissingKey
	DecryptFailed
)

func (o Outcome) String() string {
	switch o {
	case Decrypted:
		return "decrypted"
	case MissingKey:
		return "missing_key"
	case DecryptFailed:
		return "decrypt_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Message is one record as seen by a viewer. Text holds the plaintext or,
// when decryption did not happen, the matching placeholder.
type Message struct {
	Record    domain.Record
	Outcome   Outcome
	Text      string
	KeySource resolver.Candidate
}

type Options struct {
	// Concurrency bounds parallel record decryption. Zero means
	// DefaultConcurrency.
	Concurrency int
}

type Service struct {
	store       EnvelopeStore
	keys        Keys
	resolver    *resolver.Resolver
	concurrency int
}

func New(store EnvelopeStore, keys Keys, opts Options) *Service {
	n := opts.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}
	return &Service{store: store, keys: keys, resolver: resolver.New(keys), concurrency: n}
}

// Open starts a conversation of the given kind for customerID.
func (s *Service) Open(ctx context.Context, customerID uuid.UUID, kind domain.ConversationKind) (domain.Conversation, error) {
	return s.store.OpenConversation(ctx, customerID, kind)
}

func (s *Service) List(ctx context.Context, customerID uuid.UUID) ([]domain.Conversation, error) {
	return s.store.Conversations(ctx, customerID)
}

func (s *Service) conversationFor(ctx context.Context, viewer domain.Role, conversationID uuid.UUID) (domain.Conversation, error) {
	conv, err := s.store.Conversation(ctx, conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if id, ok := viewer.CustomerID(); ok && id != conv.CustomerID {
		return domain.Conversation{}, ErrNotParticipant
	}
	return conv, nil
}

// Send encrypts plaintext from viewer to the other party of the conversation
// and appends it with a snapshot of the sender's public key.
func (s *Service) Send(ctx context.Context, viewer domain.Role, conversationID uuid.UUID, plaintext string) (domain.Record, error) {
	return s.send(ctx, viewer, conversationID, domain.RecordMessage, plaintext)
}

func (s *Service) send(ctx context.Context, viewer domain.Role, conversationID uuid.UUID, kind domain.RecordKind, plaintext string) (domain.Record, error) {
	conv, err := s.conversationFor(ctx, viewer, conversationID)
	if err != nil {
		return domain.Record{}, err
	}

	priv, ok, err := s.keys.LocalPrivateKey(ctx, viewer)
	if err != nil {
		return domain.Record{}, err
	}
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: no private key for %s", ErrMissingKey, viewer)
	}
	recipient := viewer.Counterpart(conv.CustomerID)
	pub, ok, err := s.keys.PublicKey(ctx, recipient)
	if err != nil {
		return domain.Record{}, err
	}
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: %s has not published a key", ErrMissingKey, recipient)
	}

	key, err := cryptocore.DeriveSymmetricKey(priv, pub)
	if err != nil {
		return domain.Record{}, err
	}
	envelope, err := cryptocore.Encrypt(plaintext, key)
	if err != nil {
		return domain.Record{}, err
	}
	snapshot, err := cryptocore.PublicKeyOf(priv)
	if err != nil {
		return domain.Record{}, err
	}

	rec, err := s.store.Append(ctx, domain.AppendInput{
		ConversationID:  conv.ID,
		Sender:          viewer.Sender(),
		Kind:            kind,
		Envelope:        envelope,
		SenderPublicKey: snapshot,
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return rec, nil
}

// Read returns every record of the conversation in creation order, decrypted
// for viewer. Per-record failures become placeholders; only lookup errors
// and cancellation fail the call.
func (s *Service) Read(ctx context.Context, viewer domain.Role, conversationID uuid.UUID) ([]Message, error) {
	conv, err := s.conversationFor(ctx, viewer, conversationID)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.ListOrdered(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return s.decryptAll(ctx, viewer, conv, recs)
}

// Redecrypt re-runs key resolution for a single record, for example after
// the counterpart republished a key.
func (s *Service) Redecrypt(ctx context.Context, viewer domain.Role, conversationID, recordID uuid.UUID) (Message, error) {
	conv, err := s.conversationFor(ctx, viewer, conversationID)
	if err != nil {
		return Message{}, err
	}
	recs, err := s.store.ListOrdered(ctx, conv.ID)
	if err != nil {
		return Message{}, err
	}
	for _, rec := range recs {
		if rec.ID == recordID {
			priv, _, err := s.keys.LocalPrivateKey(ctx, viewer)
			if err != nil {
				return Message{}, err
			}
			return s.open(ctx, viewer, conv, rec, priv), nil
		}
	}
	return Message{}, fmt.Errorf("%w: record %s", domain.ErrNotFound, recordID)
}

func (s *Service) decryptAll(ctx context.Context, viewer domain.Role, conv domain.Conversation, recs []domain.Record) ([]Message, error) {
	priv, _, err := s.keys.LocalPrivateKey(ctx, viewer)
	if err != nil {
		return nil, err
	}

	out := make([]Message, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, rec := range recs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.open(gctx, viewer, conv, rec, priv)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// open never fails; every problem maps onto an Outcome.
func (s *Service) open(ctx context.Context, viewer domain.Role, conv domain.Conversation, rec domain.Record, priv string) Message {
	msg := s.openRecord(ctx, viewer, conv, rec, priv)
	metrics.DecryptOutcomesTotal.WithLabelValues(msg.Outcome.String()).Inc()
	return msg
}

func (s *Service) openRecord(ctx context.Context, viewer domain.Role, conv domain.Conversation, rec domain.Record, priv string) Message {
	missing := Message{Record: rec, Outcome: MissingKey, Text: PlaceholderMissingKey}
	if priv == "" {
		return missing
	}

	res, err := s.resolver.Resolve(ctx, viewer, conv.CustomerID, rec)
	if err != nil {
		slog.Warn("key resolution failed", "record_id", rec.ID, "error", err)
		return missing
	}
	if res.Outcome != resolver.Resolved {
		return missing
	}

	failed := Message{Record: rec, Outcome: DecryptFailed, Text: PlaceholderDecryptFailed, KeySource: res.Source}
	key, err := cryptocore.DeriveSymmetricKey(priv, res.PublicKey)
	if err != nil {
		slog.Debug("key agreement failed", "record_id", rec.ID, "error", err)
		return failed
	}
	text, err := cryptocore.Decrypt(rec.Envelope, key)
	if err != nil {
		if !errors.Is(err, cryptocore.ErrDecryption) {
			slog.Debug("unexpected decrypt error", "record_id", rec.ID, "error", err)
		}
		return failed
	}
	return Message{Record: rec, Outcome: Decrypted, Text: text, KeySource: res.Source}
}

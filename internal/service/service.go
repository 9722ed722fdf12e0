package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"e2estore/internal/cryptocore"
	"e2estore/internal/domain"
	"e2estore/internal/notify"
	"e2estore/internal/observability/metrics"
	"e2estore/internal/store"

	"github.com/google/uuid"
)

// Service is the persistence side of the system: the identity directory and
// the append-only envelope store. It only ever sees public keys and
// ciphertext.
type Service struct {
	store  *store.Store
	broker notify.Broker
	now    func() time.Time
	clock  *recordClock
}

func New(st *store.Store, broker notify.Broker) *Service {
	if broker == nil {
		broker = notify.NewHub(0)
	}
	return &Service{store: st, broker: broker, now: time.Now, clock: &recordClock{now: time.Now}}
}

func mapStoreErr(err error, what string) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func validPublicKey(key string) error {
	if err := cryptocore.ValidatePublicKey(key); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// RegisterCustomer creates a customer identity, optionally linked to an
// authenticated account.
func (s *Service) RegisterCustomer(ctx context.Context, publicKey, authAccountID string) (uuid.UUID, error) {
	if err := validPublicKey(publicKey); err != nil {
		return uuid.Nil, err
	}
	customer := domain.Customer{PublicKey: publicKey}
	if auth := strings.TrimSpace(authAccountID); auth != "" {
		customer.AuthAccountID = &auth
	}
	if err := s.store.Customers().Create(ctx, &customer); err != nil {
		metrics.PublicKeyUpdatesTotal.WithLabelValues("customer", "failure").Inc()
		return uuid.Nil, err
	}
	metrics.PublicKeyUpdatesTotal.WithLabelValues("customer", "success").Inc()
	slog.Info("customer registered", "customer_id", customer.ID, "linked", customer.AuthAccountID != nil)
	return customer.ID, nil
}

func (s *Service) Customer(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	c, err := s.store.Customers().Get(ctx, id)
	if err != nil {
		return domain.Customer{}, mapStoreErr(err, "customer")
	}
	return *c, nil
}

func (s *Service) CustomerPublicKey(ctx context.Context, id uuid.UUID) (string, error) {
	c, err := s.Customer(ctx, id)
	if err != nil {
		return "", err
	}
	return c.PublicKey, nil
}

func (s *Service) UpdateCustomerPublicKey(ctx context.Context, id uuid.UUID, publicKey string) error {
	if err := validPublicKey(publicKey); err != nil {
		return err
	}
	if err := s.store.Customers().UpdatePublicKey(ctx, id, publicKey); err != nil {
		metrics.PublicKeyUpdatesTotal.WithLabelValues("customer", "failure").Inc()
		return mapStoreErr(err, "customer")
	}
	metrics.PublicKeyUpdatesTotal.WithLabelValues("customer", "success").Inc()
	slog.Info("customer public key replaced", "customer_id", id)
	return nil
}

func (s *Service) LinkAuthAccount(ctx context.Context, id uuid.UUID, authAccountID string) error {
	auth := strings.TrimSpace(authAccountID)
	if auth == "" {
		return fmt.Errorf("%w: missing auth account id", ErrInvalidRequest)
	}
	if err := s.store.Customers().LinkAuthAccount(ctx, id, auth); err != nil {
		return mapStoreErr(err, "customer")
	}
	return nil
}

func (s *Service) CustomerByAuthAccount(ctx context.Context, authAccountID string) (uuid.UUID, error) {
	auth := strings.TrimSpace(authAccountID)
	if auth == "" {
		return uuid.Nil, fmt.Errorf("%w: missing auth account id", ErrInvalidRequest)
	}
	c, err := s.store.Customers().GetByAuthAccount(ctx, auth)
	if err != nil {
		return uuid.Nil, mapStoreErr(err, "customer")
	}
	return c.ID, nil
}

func (s *Service) OperatorPublicKey(ctx context.Context) (string, error) {
	row, err := s.store.Operator().Get(ctx)
	if err != nil {
		return "", mapStoreErr(err, "operator identity")
	}
	return row.PublicKey, nil
}

// SetOperatorPublicKey upserts the singleton operator identity.
func (s *Service) SetOperatorPublicKey(ctx context.Context, publicKey string) error {
	if err := validPublicKey(publicKey); err != nil {
		return err
	}
	if err := s.store.Operator().Upsert(ctx, publicKey); err != nil {
		metrics.PublicKeyUpdatesTotal.WithLabelValues("operator", "failure").Inc()
		return err
	}
	metrics.PublicKeyUpdatesTotal.WithLabelValues("operator", "success").Inc()
	slog.Info("operator public key replaced")
	return nil
}

func (s *Service) OpenConversation(ctx context.Context, customerID uuid.UUID, kind domain.ConversationKind) (domain.Conversation, error) {
	if !kind.Valid() {
		return domain.Conversation{}, fmt.Errorf("%w: unknown conversation kind %q", ErrInvalidRequest, kind)
	}
	conv := domain.Conversation{CustomerID: customerID, Kind: kind, CreatedAt: s.now().UTC()}
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.Customers().Get(ctx, customerID); err != nil {
			return mapStoreErr(err, "customer")
		}
		return tx.Conversations().Create(ctx, &conv)
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (s *Service) Conversation(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	conv, err := s.store.Conversations().Get(ctx, id)
	if err != nil {
		return domain.Conversation{}, mapStoreErr(err, "conversation")
	}
	return *conv, nil
}

func (s *Service) Conversations(ctx context.Context, customerID uuid.UUID) ([]domain.Conversation, error) {
	return s.store.Conversations().ListByCustomer(ctx, customerID)
}

// Append stores one ciphertext record and then notifies subscribers. The
// envelope is checked for structure only; the server holds no keys.
func (s *Service) Append(ctx context.Context, in domain.AppendInput) (domain.Record, error) {
	if in.ConversationID == uuid.Nil {
		return domain.Record{}, fmt.Errorf("%w: missing conversation id", ErrInvalidRequest)
	}
	if !in.Sender.Valid() {
		return domain.Record{}, fmt.Errorf("%w: unknown sender %q", ErrInvalidRequest, in.Sender)
	}
	if in.Kind == "" {
		in.Kind = domain.RecordMessage
	}
	if !in.Kind.Valid() {
		return domain.Record{}, fmt.Errorf("%w: unknown record kind %q", ErrInvalidRequest, in.Kind)
	}
	if _, err := cryptocore.ParseEnvelope(in.Envelope); err != nil {
		return domain.Record{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rec := domain.Record{
		ConversationID: in.ConversationID,
		Sender:         in.Sender,
		Kind:           in.Kind,
		Envelope:       in.Envelope,
		CreatedAt:      s.clock.next(),
	}
	if in.SenderPublicKey != "" {
		if err := validPublicKey(in.SenderPublicKey); err != nil {
			return domain.Record{}, err
		}
		snapshot := in.SenderPublicKey
		rec.SenderPublicKey = &snapshot
	}

	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		conv, err := tx.Conversations().Get(ctx, in.ConversationID)
		if err != nil {
			return mapStoreErr(err, "conversation")
		}
		if rec.Kind == domain.RecordOrderDetails && conv.Kind != domain.ConversationOrder {
			return fmt.Errorf("%w: order details belong in an order conversation", ErrInvalidRequest)
		}
		return tx.Records().Append(ctx, &rec)
	})
	if err != nil {
		return domain.Record{}, err
	}

	metrics.RecordsAppendedTotal.WithLabelValues(string(rec.Sender), string(rec.Kind)).Inc()
	metrics.EnvelopeBytes.WithLabelValues(string(rec.Kind)).Observe(float64(len(rec.Envelope)))

	ev := notify.Event{ConversationID: rec.ConversationID, RecordID: rec.ID}
	if err := s.broker.Publish(ctx, ev); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failure").Inc()
		slog.Warn("record notification failed", "error", err, "conversation_id", rec.ConversationID, "record_id", rec.ID)
	} else {
		metrics.NotificationsTotal.WithLabelValues("success").Inc()
	}
	return rec, nil
}

func (s *Service) ListOrdered(ctx context.Context, conversationID uuid.UUID) ([]domain.Record, error) {
	if _, err := s.Conversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.store.Records().ListByConversation(ctx, conversationID)
}

func (s *Service) Subscribe(ctx context.Context, conversationID uuid.UUID, onInsert func(recordID uuid.UUID)) (func(), error) {
	return s.broker.Subscribe(ctx, conversationID, func(ev notify.Event) {
		onInsert(ev.RecordID)
	})
}

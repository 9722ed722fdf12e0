package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const DefaultChannel = "e2e_records"

// PGBroker publishes with pg_notify and relays notifications received on a
// dedicated LISTEN connection into a local Hub, so every server instance sees
// appends made by its peers.
type PGBroker struct {
	dsn     string
	channel string
	hub     *Hub
	publish func(ctx context.Context, sql string, args ...any) error
}

// NewPGBroker publishes through exec, which receives gorm-style "?"
// placeholders (typically gorm.DB.Exec).
func NewPGBroker(dsn, channel string, exec func(ctx context.Context, sql string, args ...any) error) *PGBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PGBroker{dsn: dsn, channel: channel, hub: NewHub(0), publish: exec}
}

func (b *PGBroker) Publish(ctx context.Context, ev Event) error {
	return b.publish(ctx, "SELECT pg_notify(?, ?)", b.channel, encodePayload(ev))
}

func (b *PGBroker) Subscribe(ctx context.Context, conversationID uuid.UUID, fn func(Event)) (func(), error) {
	return b.hub.Subscribe(ctx, conversationID, fn)
}

// Run holds the LISTEN connection until ctx is cancelled, reconnecting with a
// fixed backoff when the connection drops.
func (b *PGBroker) Run(ctx context.Context) error {
	for reconnect := false; ; reconnect = true {
		err := b.listen(ctx, reconnect)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("notify: listener stopped, reconnecting", "error", err, "channel", b.channel)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (b *PGBroker) listen(ctx context.Context, reconnect bool) error {
	conn, err := pgx.Connect(ctx, b.dsn)
	if err != nil {
		return fmt.Errorf("notify connect: %w", err)
	}
	defer func() { _ = conn.Close(context.Background()) }()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return fmt.Errorf("notify listen: %w", err)
	}
	b.listening(reconnect)
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := decodePayload(n.Payload)
		if err != nil {
			slog.Warn("notify: dropping malformed payload", "payload", n.Payload, "error", err)
			continue
		}
		_ = b.hub.Publish(ctx, ev)
	}
}

// listening runs once LISTEN is in place. After a reconnect, appends made
// by peers while the connection was down were never delivered, so every
// subscriber is told to re-read.
func (b *PGBroker) listening(reconnect bool) {
	slog.Info("notify: listening", "channel", b.channel, "reconnect", reconnect)
	if reconnect {
		b.hub.Broadcast()
	}
}

func encodePayload(ev Event) string {
	return ev.ConversationID.String() + ":" + ev.RecordID.String()
}

func decodePayload(s string) (Event, error) {
	conv, rec, ok := strings.Cut(s, ":")
	if !ok {
		return Event{}, errors.New("missing separator")
	}
	convID, err := uuid.Parse(conv)
	if err != nil {
		return Event{}, err
	}
	recID, err := uuid.Parse(rec)
	if err != nil {
		return Event{}, err
	}
	return Event{ConversationID: convID, RecordID: recID}, nil
}

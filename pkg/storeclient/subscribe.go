package storeclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"e2estore/internal/dto"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

func (c *Client) eventsURL(conversationID uuid.UUID) (string, string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", "", err
	}
	origin := u.String()
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", "", fmt.Errorf("unsupported scheme %s", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/conversations/" + conversationID.String() + "/events"
	return u.String(), origin, nil
}

func (c *Client) dial(ctx context.Context, conversationID uuid.UUID) (*websocket.Conn, error) {
	wsURL, origin, err := c.eventsURL(conversationID)
	if err != nil {
		return nil, err
	}
	cfg, err := websocket.NewConfig(wsURL, origin)
	if err != nil {
		return nil, err
	}
	return cfg.DialContext(ctx)
}

// Subscribe opens the conversation events stream. onInsert runs for every
// appended record. After a dropped connection is re-established it also runs
// once with uuid.Nil, since inserts may have been missed meanwhile.
func (c *Client) Subscribe(ctx context.Context, conversationID uuid.UUID, onInsert func(recordID uuid.UUID)) (func(), error) {
	if _, err := c.Conversation(ctx, conversationID); err != nil {
		return nil, err
	}
	conn, err := c.dial(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("events stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var (
		mu   sync.Mutex
		cur  = conn
		done = make(chan struct{})
	)
	closeCur := func() {
		mu.Lock()
		if cur != nil {
			_ = cur.Close()
		}
		mu.Unlock()
	}
	go func() {
		<-ctx.Done()
		closeCur()
	}()

	go func() {
		defer close(done)
		for {
			mu.Lock()
			ws := cur
			mu.Unlock()
			readFrames(ws, onInsert)
			if ctx.Err() != nil {
				return
			}

			slog.Debug("events stream dropped, reconnecting", "conversation_id", conversationID)
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.reconnect):
				}
				next, err := c.dial(ctx, conversationID)
				if err != nil {
					slog.Debug("events reconnect failed", "conversation_id", conversationID, "error", err)
					continue
				}
				mu.Lock()
				cur = next
				mu.Unlock()
				if ctx.Err() != nil {
					_ = next.Close()
					return
				}
				onInsert(uuid.Nil)
				break
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return stop, nil
}

func readFrames(ws *websocket.Conn, onInsert func(uuid.UUID)) {
	for {
		var frame dto.EventFrame
		if err := websocket.JSON.Receive(ws, &frame); err != nil {
			return
		}
		if frame.Type != dto.EventRecord {
			continue
		}
		id, err := uuid.Parse(frame.RecordID)
		if err != nil {
			continue
		}
		onInsert(id)
	}
}

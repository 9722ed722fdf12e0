package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"e2estore/internal/dto"
	"e2estore/internal/observability/metrics"
	obsmw "e2estore/internal/observability/middleware"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const writeTimeout = 10 * time.Second

// handleEvents streams {"type":"record","recordId":...} frames for every
// record appended to the conversation, plus periodic pings. Clients treat a
// frame as a hint to re-read the conversation.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	convID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.svc.Conversation(r.Context(), convID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	reqID := obsmw.RequestIDFromContext(r.Context())

	srv := websocket.Server{
		Handshake: checkOrigin(h.origins),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			h.streamEvents(r.Context(), conn, convID, reqID)
		},
	}
	srv.ServeHTTP(w, r)
}

// checkOrigin admits clients without an Origin header (non-browser), the
// server's own origin and the configured CORS origins. Browsers do not apply
// CORS to websocket upgrades, so this is the only origin check they get.
func checkOrigin(allowed []string) func(*websocket.Config, *http.Request) error {
	return func(cfg *websocket.Config, r *http.Request) error {
		origin, err := websocket.Origin(cfg, r)
		if err != nil {
			return err
		}
		if origin == nil {
			return nil
		}
		cfg.Origin = origin
		if strings.EqualFold(origin.Host, r.Host) {
			return nil
		}
		want := strings.ToLower(origin.Scheme + "://" + origin.Host)
		for _, o := range allowed {
			if o == "*" || strings.ToLower(strings.TrimSuffix(o, "/")) == want {
				return nil
			}
		}
		return fmt.Errorf("origin %s not allowed", want)
	}
}

func (h *Handler) streamEvents(parent context.Context, conn *websocket.Conn, convID uuid.UUID, reqID string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	metrics.EventStreamsActive.WithLabelValues().Inc()
	defer metrics.EventStreamsActive.WithLabelValues().Dec()

	pending := make(chan uuid.UUID, 64)
	stop, err := h.svc.Subscribe(ctx, convID, func(recordID uuid.UUID) {
		select {
		case pending <- recordID:
		default:
			// Client is behind; it re-reads on the next frame anyway.
		}
	})
	if err != nil {
		slog.Warn("events subscribe failed", "error", err, "conversation_id", convID, "request_id", reqID)
		return
	}
	defer stop()

	// Reader loop only detects disconnects.
	go func() {
		defer cancel()
		for {
			var discard []byte
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	send := func(frame dto.EventFrame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := websocket.JSON.Send(conn, frame); err != nil {
			slog.Debug("events write failed", "error", err, "conversation_id", convID, "request_id", reqID)
			return false
		}
		return true
	}

	slog.Debug("events stream opened", "conversation_id", convID, "request_id", reqID)
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-pending:
			if !send(dto.EventFrame{Type: dto.EventRecord, RecordID: id.String()}) {
				return
			}
		case <-ticker.C:
			if !send(dto.EventFrame{Type: dto.EventPing}) {
				return
			}
		}
	}
}

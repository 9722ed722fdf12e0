package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub is an in-process Broker. Each subscriber gets its own buffered queue
// and goroutine so a slow callback never blocks Publish.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uuid.UUID]map[uint64]*subscriber
	buffer int
}

type subscriber struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[uuid.UUID]map[uint64]*subscriber), buffer: buffer}
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[ev.ConversationID] {
		select {
		case sub.ch <- ev:
		default:
			// Queue full: the subscriber already has a pending refetch.
		}
	}
	return nil
}

// Broadcast sends a resync event (RecordID uuid.Nil) to every subscriber of
// every conversation. Used when events may have been missed.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conv, subs := range h.subs {
		ev := Event{ConversationID: conv, RecordID: uuid.Nil}
		for _, sub := range subs {
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}

func (h *Hub) Subscribe(ctx context.Context, conversationID uuid.UUID, fn func(Event)) (func(), error) {
	sub := &subscriber{ch: make(chan Event, h.buffer), done: make(chan struct{})}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[conversationID] == nil {
		h.subs[conversationID] = make(map[uint64]*subscriber)
	}
	h.subs[conversationID][id] = sub
	h.mu.Unlock()

	stop := func() {
		sub.once.Do(func() {
			h.mu.Lock()
			delete(h.subs[conversationID], id)
			if len(h.subs[conversationID]) == 0 {
				delete(h.subs, conversationID)
			}
			h.mu.Unlock()
			close(sub.done)
		})
	}

	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case ev := <-sub.ch:
				fn(ev)
			}
		}
	}()
	return stop, nil
}

// Subscribers reports the number of live subscriptions for a conversation.
func (h *Hub) Subscribers(conversationID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[conversationID])
}

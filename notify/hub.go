package notify

import (
	"context"
	"sync"

	"cart-management/model"
)

const (
	EventCart  = "cart"
	EventError = "error"
)

// Event is what a Hub delivers to its subscribers.
type Event struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Items   *model.Cart `json:"items,omitempty"`
}

// Hub fans cart snapshots and error messages out to live subscribers, such as
// the websocket connections of one session. Slow subscribers miss events
// instead of blocking the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: buffer}
}

// Subscribe returns a channel of events and a func that closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Error(_ context.Context, message string) {
	h.publish(Event{Type: EventError, Message: message})
}

// PublishCart sends a snapshot of c. It matches the listener signature of the
// cart service's Subscribe.
func (h *Hub) PublishCart(c model.Cart) {
	snapshot := c.Clone()
	h.publish(Event{Type: EventCart, Items: &snapshot})
}

// Subscribers reports how many channels are currently attached.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

package presence

import (
	"sync"
	"time"
)

// EventType classifies registry changes published to presence subscribers.
type EventType string

const (
	EventRegistered   EventType = "registered"
	EventUnregistered EventType = "unregistered"
	EventAvailability EventType = "availability"
	EventReaped       EventType = "reaped"
)

// Event is one registry change, as seen by dashboard subscribers.
type Event struct {
	Type    EventType `json:"type"`
	Session Session   `json:"session"`
	At      time.Time `json:"at"`
}

// Hub fans registry events out to subscribers. Delivery is best-effort:
// a subscriber that stops draining its channel loses events rather than
// blocking the registry.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// Subscriber receives presence events on C until Close.
type Subscriber struct {
	C   chan Event
	hub *Hub
}

const subscriberBuffer = 16

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{C: make(chan Event, subscriberBuffer), hub: h}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Close detaches the subscriber and closes its channel.
func (s *Subscriber) Close() {
	h := s.hub
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.C)
	}
	h.mu.Unlock()
}

// Publish delivers e to every subscriber, dropping for slow ones.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.C <- e:
		default:
		}
	}
}

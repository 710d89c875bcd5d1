package entries

import (
	"sync"

	"grateful/internal/core"
)

// EventKind names a change to the entry log.
type EventKind string

const (
	EventCreated EventKind = "entry:created"
	EventDeleted EventKind = "entry:deleted"
)

// Event describes one change to the entry log.
type Event struct {
	Kind  EventKind
	Entry core.Entry
}

// Subscriber is called synchronously for every published event.
type Subscriber func(Event)

// Hub fans out store change notifications to in-process subscribers.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	subs     map[int]Subscriber
	revision uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]Subscriber)}
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub) Subscribe(fn Subscriber) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Publish bumps the revision and delivers ev to every subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	h.revision++
	subs := make([]Subscriber, 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Revision counts the events published so far.
func (h *Hub) Revision() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.revision
}

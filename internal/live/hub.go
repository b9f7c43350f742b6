// Package live pushes metadata changes to connected browsers.
package live

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event types sent to subscribers.
const (
	EventCoinUpdated      = "coin_updated"
	EventMetadataReloaded = "metadata_reloaded"
)

const subscriberBuffer = 16

// Event is one message on the update stream.
type Event struct {
	Type    string   `json:"type"`
	CoinID  *int     `json:"coin_id,omitempty"`
	Changed []string `json:"changed,omitempty"`
}

// Hub fans events out to subscribers. A subscriber whose buffer is full is
// dropped rather than allowed to stall publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Event)}
}

// Subscribe registers a new subscriber. The channel is closed when the
// subscriber is removed or the hub shuts down.
func (h *Hub) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	slog.Debug("Live subscriber registered", "subscriber_id", id, "subscribers", len(h.subs))
	return id, ch
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
		slog.Debug("Live subscriber unregistered", "subscriber_id", id, "subscribers", len(h.subs))
	}
}

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			delete(h.subs, id)
			close(ch)
			slog.Warn("Dropping slow live subscriber", "subscriber_id", id)
		}
	}
}

// CoinUpdated announces an effective metadata edit.
func (h *Hub) CoinUpdated(id int, changed []string) {
	h.Publish(Event{Type: EventCoinUpdated, CoinID: &id, Changed: changed})
}

// MetadataReloaded announces that the metadata document changed on disk.
func (h *Hub) MetadataReloaded() {
	h.Publish(Event{Type: EventMetadataReloaded})
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber. Later subscriptions are closed at once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.closed = true
}

package secret

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a secret change
type EventType string

const (
	EventSecretSet     EventType = "SECRET_SET"
	EventSecretDeleted EventType = "SECRET_DELETED"
)

// Event describes one secret change. Events never carry the value.
// Acls is the grant set at the time of the change; delivery uses it to
// decide which subscribers may see the event, including deletions whose
// grants no longer exist in storage.
type Event struct {
	Type      EventType
	SecretID  uuid.UUID
	Name      string
	OrgID     uuid.UUID
	Timestamp time.Time
	Acls      []AclEntry
}

// Hub fans secret change events out to subscribers. A subscriber that
// cannot keep up has its channel dropped rather than blocking publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an event hub
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function
// must be called when the subscriber is done.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return ch, cancel
}

// Publish delivers an event to all current subscribers
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

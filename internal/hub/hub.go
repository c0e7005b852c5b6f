// Package hub fans each tick's classified snapshot out to live
// subscribers. Delivery is best-effort: a subscriber that falls behind
// loses snapshots instead of stalling the publishing tick.
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/zonewatch/backend/internal/classify"
)

// Snapshot is the full set of readings produced by one tick, in catalog
// order.
type Snapshot []classify.Reading

// subscriberBuffer is the per-subscriber channel depth. One slot per
// in-flight tick is enough for a live feed; anything the consumer has
// not drained by the time the buffer fills is stale.
const subscriberBuffer = 8

// Hub maintains the subscriber registry. Safe for concurrent use; the
// hub never retains a snapshot beyond the instant of publication.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan Snapshot
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		subs: make(map[uuid.UUID]chan Snapshot),
	}
}

// Subscribe registers a new subscriber and returns its id and receive
// channel. The channel is closed on Unsubscribe or when the hub shuts
// down.
func (h *Hub) Subscribe() (uuid.UUID, <-chan Snapshot) {
	id := uuid.New()
	ch := make(chan Snapshot, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids
// are ignored, so calling after hub shutdown is safe.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(ch)
}

// Publish delivers the snapshot to every current subscriber without
// blocking. Subscribers with a full buffer are skipped and counted in
// Dropped.
func (h *Hub) Publish(snapshot Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	h.published.Add(1)
	for _, ch := range h.subs {
		select {
		case ch <- snapshot:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Published returns the number of snapshots published so far.
func (h *Hub) Published() uint64 {
	return h.published.Load()
}

// Dropped returns the number of per-subscriber deliveries skipped
// because the subscriber's buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close shuts the hub down: all subscriber channels are closed and
// further Publish and Subscribe calls become no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Package realtime delivers freshly appended discussion events to open thread views.
// Delivery is at-least-once and unordered; consumers dedupe by event id and fold events
// idempotently, so the broker makes no ordering or exactly-once promises.
package realtime

import (
	"context"
	"sync"

	"github.com/instiboard/discussiond/internal/discussion"
)

// EventFunc is invoked for each event delivered on a subscription.
type EventFunc func(ev *discussion.DiscussionEvent)

// Unsubscribe detaches a subscription. It must be called when the view closes so the
// broker stops delivering into a buffer nobody is watching.
type Unsubscribe func()

// Broker is the realtime delivery channel between the event store and open views.
type Broker interface {
	Publish(ctx context.Context, threadID string, ev *discussion.DiscussionEvent) error
	Subscribe(ctx context.Context, threadID string, fn EventFunc) (Unsubscribe, error)
}

// Hub is an in-process broker for single-node deployments and tests. Events published on
// a thread fan out synchronously to every live subscription of that thread.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]EventFunc
}

// NewHub creates an empty in-process broker.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]EventFunc)}
}

// Publish delivers the event to every current subscriber of the thread.
func (h *Hub) Publish(_ context.Context, threadID string, ev *discussion.DiscussionEvent) error {
	h.mu.Lock()
	fns := make([]EventFunc, 0, len(h.subs[threadID]))
	for _, fn := range h.subs[threadID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

// Subscribe registers fn for all future events on the thread.
func (h *Hub) Subscribe(_ context.Context, threadID string, fn EventFunc) (Unsubscribe, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[threadID] == nil {
		h.subs[threadID] = make(map[int]EventFunc)
	}
	h.subs[threadID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[threadID], id)
		if len(h.subs[threadID]) == 0 {
			delete(h.subs, threadID)
		}
	}, nil
}

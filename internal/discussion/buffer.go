package discussion

import (
	"sync"
)

// MergeBuffer holds the authoritative in-memory copy of all known events for one open
// thread. The realtime channel is at-least-once and unordered, so the buffer dedupes by
// event id and the projected view is recomputed from the full buffer after every change
// rather than patched incrementally. Per-thread event volumes are tens to low hundreds;
// the full recompute buys correctness for a cost that never shows up in practice.
//
// Events are only ever added; nothing is removed for the lifetime of the open thread.
type MergeBuffer struct {
	mu       sync.Mutex
	threadID string
	seen     map[string]struct{}
	events   []*DiscussionEvent
	view     []*CommentNode
}

// NewMergeBuffer creates an empty buffer for a thread.
func NewMergeBuffer(threadID string) *MergeBuffer {
	return &MergeBuffer{
		threadID: threadID,
		seen:     make(map[string]struct{}),
	}
}

// ThreadID returns the thread this buffer is scoped to.
func (b *MergeBuffer) ThreadID() string {
	return b.threadID
}

// Hydrate replaces the buffer wholesale with the given events and reprojects. Used on
// initial open with the result of the store fetch. Duplicate ids within the input are
// collapsed to the first occurrence.
func (b *MergeBuffer) Hydrate(events []*DiscussionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seen = make(map[string]struct{}, len(events))
	b.events = b.events[:0]
	for _, ev := range events {
		if _, dup := b.seen[ev.ID]; dup {
			continue
		}
		b.seen[ev.ID] = struct{}{}
		b.events = append(b.events, ev)
	}
	b.view = Project(b.events)
}

// Ingest appends one event delivered out of band and reprojects. Returns false without
// touching the buffer when the event id is already present (the realtime channel may
// deliver duplicates).
func (b *MergeBuffer) Ingest(ev *DiscussionEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.seen[ev.ID]; dup {
		return false
	}
	b.seen[ev.ID] = struct{}{}
	b.events = append(b.events, ev)
	b.view = Project(b.events)
	return true
}

// Len returns the number of distinct events held.
func (b *MergeBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Events returns a snapshot copy of the raw event list in ingest order.
func (b *MergeBuffer) Events() []*DiscussionEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make([]*DiscussionEvent, len(b.events))
	copy(snapshot, b.events)
	return snapshot
}

// View returns the comment tree projected from the current buffer contents.
func (b *MergeBuffer) View() []*CommentNode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

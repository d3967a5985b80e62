package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instiboard/discussiond/internal/discussion"
)

func testEvent(id, threadID string) *discussion.DiscussionEvent {
	return &discussion.DiscussionEvent{
		ID:        id,
		ThreadID:  threadID,
		OrgID:     1,
		ActorID:   "alice",
		CreatedAt: time.Now().UTC(),
		Payload:   "hello",
	}
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	var first, second []*discussion.DiscussionEvent
	unsubFirst, err := hub.Subscribe(ctx, "t1", func(ev *discussion.DiscussionEvent) {
		first = append(first, ev)
	})
	require.NoError(t, err)
	defer unsubFirst()

	unsubSecond, err := hub.Subscribe(ctx, "t1", func(ev *discussion.DiscussionEvent) {
		second = append(second, ev)
	})
	require.NoError(t, err)
	defer unsubSecond()

	require.NoError(t, hub.Publish(ctx, "t1", testEvent("e1", "t1")))

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestHubThreadIsolation(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	var received []*discussion.DiscussionEvent
	unsub, err := hub.Subscribe(ctx, "t1", func(ev *discussion.DiscussionEvent) {
		received = append(received, ev)
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, hub.Publish(ctx, "t2", testEvent("e1", "t2")))
	assert.Empty(t, received, "events on other threads are not delivered")
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	var received []*discussion.DiscussionEvent
	unsub, err := hub.Subscribe(ctx, "t1", func(ev *discussion.DiscussionEvent) {
		received = append(received, ev)
	})
	require.NoError(t, err)

	require.NoError(t, hub.Publish(ctx, "t1", testEvent("e1", "t1")))
	unsub()
	require.NoError(t, hub.Publish(ctx, "t1", testEvent("e2", "t1")))

	assert.Len(t, received, 1, "nothing is delivered after unsubscribe")
}

func TestHubPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	assert.NoError(t, hub.Publish(context.Background(), "t1", testEvent("e1", "t1")))
}

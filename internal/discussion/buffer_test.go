package discussion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeBufferHydrate(t *testing.T) {
	buffer := NewMergeBuffer("thread-1")

	buffer.Hydrate([]*DiscussionEvent{
		makeEvent(t, "c1", "alice", projectorEpoch, Comment{Text: "one"}),
		makeEvent(t, "c2", "bob", projectorEpoch.Add(time.Minute), Comment{Text: "two"}),
	})
	assert.Equal(t, 2, buffer.Len())
	assert.Len(t, buffer.View(), 2)

	// Hydrate replaces wholesale.
	buffer.Hydrate([]*DiscussionEvent{
		makeEvent(t, "c9", "carol", projectorEpoch, Comment{Text: "fresh"}),
	})
	assert.Equal(t, 1, buffer.Len())
	require.Len(t, buffer.View(), 1)
	assert.Equal(t, "c9", buffer.View()[0].ID)
}

func TestMergeBufferIngestDedup(t *testing.T) {
	buffer := NewMergeBuffer("thread-1")
	event := makeEvent(t, "c1", "alice", projectorEpoch, Comment{Text: "hello"})

	assert.True(t, buffer.Ingest(event))
	assert.False(t, buffer.Ingest(event), "second ingest of the same id is a no-op")
	assert.Equal(t, 1, buffer.Len(), "buffer changed exactly once")

	// A copy with the same id from a second delivery is deduped too.
	duplicate := *event
	assert.False(t, buffer.Ingest(&duplicate))
	assert.Equal(t, 1, buffer.Len())
}

func TestMergeBufferIngestReprojects(t *testing.T) {
	buffer := NewMergeBuffer("thread-1")
	buffer.Hydrate([]*DiscussionEvent{
		makeEvent(t, "c1", "alice", projectorEpoch, Comment{Text: "root"}),
	})

	require.True(t, buffer.Ingest(makeEvent(t, "x1", "bob", projectorEpoch.Add(time.Second),
		Reaction{TargetID: "c1", Emoji: "👍"})))

	view := buffer.View()
	require.Len(t, view, 1)
	assert.Equal(t, []string{"bob"}, view[0].Reactions["👍"])
}

func TestMergeBufferHydrateCollapsesDuplicates(t *testing.T) {
	event := makeEvent(t, "c1", "alice", projectorEpoch, Comment{Text: "once"})
	duplicate := *event

	buffer := NewMergeBuffer("thread-1")
	buffer.Hydrate([]*DiscussionEvent{event, &duplicate})

	assert.Equal(t, 1, buffer.Len())
}

func TestMergeBufferEventsSnapshot(t *testing.T) {
	buffer := NewMergeBuffer("thread-1")
	buffer.Hydrate([]*DiscussionEvent{
		makeEvent(t, "c1", "alice", projectorEpoch, Comment{Text: "one"}),
	})

	snapshot := buffer.Events()
	require.Len(t, snapshot, 1)

	// Mutating the snapshot slice must not affect the buffer.
	snapshot[0] = nil
	assert.NotNil(t, buffer.Events()[0])
}

package discussion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instiboard/discussiond/internal/identity"
)

// mapResolver resolves from a fixed map and counts lookups.
type mapResolver struct {
	profiles map[string]identity.Identity
	calls    int
}

func (r *mapResolver) Resolve(_ context.Context, actorID string) (identity.Identity, error) {
	r.calls++
	if profile, ok := r.profiles[actorID]; ok {
		return profile, nil
	}
	return identity.Identity{}, identity.ErrNotFound
}

func TestProjectAudit(t *testing.T) {
	resolver := &mapResolver{profiles: map[string]identity.Identity{
		"alice": {DisplayName: "Alice Mwangi", Role: "hr", AvatarRef: "avatar:alice"},
		"bob":   {DisplayName: "Bob Tan", Role: "member", AvatarRef: "avatar:bob"},
	}}

	events := []*DiscussionEvent{
		makeEvent(t, "c1", "alice", projectorEpoch, Comment{Text: "Quarterly numbers posted"}),
		makeEvent(t, "x1", "bob", projectorEpoch.Add(time.Minute), Reaction{TargetID: "c1", Emoji: "👍"}),
		makeEvent(t, "r1", "bob", projectorEpoch.Add(2*time.Minute), Reply{Text: "Looks good", ParentID: "c1"}),
		makeEvent(t, "p1", "alice", projectorEpoch.Add(3*time.Minute), PinToggle{TargetID: "c1", Pinned: true}),
		makeEvent(t, "p2", "alice", projectorEpoch.Add(4*time.Minute), PinToggle{TargetID: "c1", Pinned: false}),
	}

	entries := ProjectAudit(context.Background(), events, resolver)

	// One entry per event except the reaction; reverse chronological.
	require.Len(t, entries, 4)
	assert.Equal(t, []string{AuditKindUnpin, AuditKindPin, AuditKindReply, AuditKindComment},
		[]string{entries[0].Kind, entries[1].Kind, entries[2].Kind, entries[3].Kind})

	assert.Equal(t, "Alice Mwangi", entries[0].ActorName)
	assert.Equal(t, "hr", entries[0].ActorRole)
	assert.Equal(t, "Quarterly numbers posted", entries[0].TargetSummary,
		"pin entries summarize the pinned comment's text")
	assert.Equal(t, "Bob Tan", entries[2].ActorName)
	assert.Equal(t, "Looks good", entries[2].TargetSummary)
}

func TestProjectAuditUnresolvedActorGetsPlaceholder(t *testing.T) {
	events := []*DiscussionEvent{
		makeEvent(t, "c1", "ghost-42", projectorEpoch, Comment{Text: "who am I"}),
	}

	entries := ProjectAudit(context.Background(), events, &mapResolver{})
	require.Len(t, entries, 1)

	want := identity.Placeholder("ghost-42")
	assert.Equal(t, want.DisplayName, entries[0].ActorName)
	assert.Equal(t, want.Role, entries[0].ActorRole)

	// Placeholder is deterministic: rerunning yields the same name.
	again := ProjectAudit(context.Background(), events, &mapResolver{})
	assert.Equal(t, entries[0].ActorName, again[0].ActorName)
}

func TestProjectAuditNilResolver(t *testing.T) {
	events := []*DiscussionEvent{
		makeEvent(t, "c1", "alice", projectorEpoch, Comment{Text: "hi"}),
	}

	entries := ProjectAudit(context.Background(), events, nil)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ActorName)
}

func TestProjectAuditPinTargetUnknown(t *testing.T) {
	events := []*DiscussionEvent{
		makeEvent(t, "p1", "alice", projectorEpoch, PinToggle{TargetID: "ghost", Pinned: true}),
	}

	entries := ProjectAudit(context.Background(), events, &mapResolver{})
	require.Len(t, entries, 1)
	assert.Equal(t, AuditKindPin, entries[0].Kind)
	assert.Equal(t, "ghost", entries[0].TargetSummary,
		"a pin whose target never arrived falls back to the raw target id")
}

func TestProjectAuditSummaryTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "lengthy "
	}

	events := []*DiscussionEvent{
		makeEvent(t, "c1", "alice", projectorEpoch, Comment{Text: long}),
	}

	entries := ProjectAudit(context.Background(), events, &mapResolver{})
	require.Len(t, entries, 1)
	assert.Less(t, len([]rune(entries[0].TargetSummary)), len([]rune(long)))
}

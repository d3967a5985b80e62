package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	calls    int
	profiles map[string]Identity
}

func (r *countingResolver) Resolve(_ context.Context, actorID string) (Identity, error) {
	r.calls++
	if profile, ok := r.profiles[actorID]; ok {
		return profile, nil
	}
	return Identity{}, ErrNotFound
}

func TestPlaceholderDeterministic(t *testing.T) {
	first := Placeholder("emp-4821")
	second := Placeholder("emp-4821")
	assert.Equal(t, first, second, "same actor id always yields the same placeholder")

	other := Placeholder("emp-4822")
	assert.NotEqual(t, first.DisplayName, other.DisplayName)

	assert.NotEmpty(t, Placeholder("").DisplayName)
	assert.NotEmpty(t, Placeholder("x").AvatarRef)
}

func TestCachedResolverHit(t *testing.T) {
	inner := &countingResolver{profiles: map[string]Identity{
		"alice": {DisplayName: "Alice", Role: "hr"},
	}}
	cached := NewCachedResolver(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		profile, err := cached.Resolve(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice", profile.DisplayName)
	}
	assert.Equal(t, 1, inner.calls, "repeated lookups within the TTL hit the cache")
}

func TestCachedResolverCachesMisses(t *testing.T) {
	inner := &countingResolver{}
	cached := NewCachedResolver(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cached.Resolve(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 1, inner.calls, "misses are cached too")
}

func TestCachedResolverExpiry(t *testing.T) {
	inner := &countingResolver{profiles: map[string]Identity{
		"alice": {DisplayName: "Alice"},
	}}
	cached := NewCachedResolver(inner, time.Millisecond)
	ctx := context.Background()

	_, err := cached.Resolve(ctx, "alice")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = cached.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "expired entries consult the inner resolver again")
}

// Package identity resolves actor ids to directory profiles (display name, role,
// avatar). The discussion engine treats the directory as an external collaborator: a
// lookup that misses degrades to a deterministic placeholder and never blocks rendering.
package identity

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"
)

// Identity is the directory profile of one actor.
type Identity struct {
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	AvatarRef   string `json:"avatarRef"`
}

// ErrNotFound is returned by resolvers when the directory has no profile for an actor.
var ErrNotFound = errors.New("actor not found in directory")

// Resolver maps an actor id to a directory profile.
type Resolver interface {
	Resolve(ctx context.Context, actorID string) (Identity, error)
}

// Placeholder derives a deterministic stand-in identity from an actor id. The same id
// always produces the same placeholder, so views stay stable across renders even while
// the directory is unreachable.
func Placeholder(actorID string) Identity {
	h := fnv.New32a()
	h.Write([]byte(actorID))
	return Identity{
		DisplayName: fmt.Sprintf("User %04d", h.Sum32()%10000),
		Role:        "member",
		AvatarRef:   "avatar:placeholder:" + initialsOf(actorID),
	}
}

func initialsOf(actorID string) string {
	runes := []rune(strings.TrimSpace(actorID))
	if len(runes) == 0 {
		return "?"
	}
	if len(runes) == 1 {
		return strings.ToUpper(string(runes))
	}
	return strings.ToUpper(string(runes[:2]))
}

// CachedResolver memoizes lookups from an inner resolver for a fixed TTL. Both hits and
// misses are cached: a directory outage otherwise turns every audit render into a burst
// of failing lookups.
type CachedResolver struct {
	inner Resolver
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	identity  Identity
	err       error
	expiresAt time.Time
}

// NewCachedResolver wraps inner with a per-actor TTL cache.
func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Resolve returns the cached profile for actorID, consulting the inner resolver when the
// cache entry is absent or expired.
func (r *CachedResolver) Resolve(ctx context.Context, actorID string) (Identity, error) {
	r.mu.Lock()
	if entry, ok := r.entries[actorID]; ok && time.Now().Before(entry.expiresAt) {
		r.mu.Unlock()
		return entry.identity, entry.err
	}
	r.mu.Unlock()

	resolved, err := r.inner.Resolve(ctx, actorID)

	r.mu.Lock()
	r.entries[actorID] = cacheEntry{
		identity:  resolved,
		err:       err,
		expiresAt: time.Now().Add(r.ttl),
	}
	r.mu.Unlock()

	return resolved, err
}

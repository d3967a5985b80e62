package identity

import (
	"context"
	"database/sql"
	"fmt"
)

// DirectoryStore resolves actor profiles from the application's directory_profiles
// relation, which the parent institution app keeps in sync with its employee and student
// tables.
type DirectoryStore struct {
	db *sql.DB
}

// NewDirectoryStore creates a new directory-backed resolver
func NewDirectoryStore(db *sql.DB) *DirectoryStore {
	return &DirectoryStore{db: db}
}

// Resolve looks up the profile for an actor id. A missing row returns ErrNotFound so
// callers can substitute a placeholder.
func (s *DirectoryStore) Resolve(ctx context.Context, actorID string) (Identity, error) {
	query := `
		SELECT display_name, role, avatar_ref
		FROM public.directory_profiles
		WHERE actor_id = $1
	`

	var profile Identity
	err := s.db.QueryRowContext(ctx, query, actorID).Scan(
		&profile.DisplayName,
		&profile.Role,
		&profile.AvatarRef,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Identity{}, ErrNotFound
		}
		return Identity{}, fmt.Errorf("failed to resolve actor %s: %w", actorID, err)
	}

	return profile, nil
}

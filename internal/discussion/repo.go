package discussion

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Publisher delivers a freshly appended event to the realtime channel. Delivery is best
// effort; a publish failure never fails the append that preceded it.
type Publisher interface {
	Publish(ctx context.Context, threadID string, ev *DiscussionEvent) error
}

// EventsRepo handles database operations for the append-only discussion event log.
// Events are inserted once and never updated or deleted.
type EventsRepo struct {
	db *sql.DB
}

// NewEventsRepo creates a new discussion events repository
func NewEventsRepo(db *sql.DB) *EventsRepo {
	return &EventsRepo{db: db}
}

// Insert appends one event. The caller provides id, timestamp and encoded payload.
func (r *EventsRepo) Insert(ctx context.Context, event *DiscussionEvent) error {
	query := `
		INSERT INTO public.discussion_events (id, thread_id, org_id, actor_id, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		event.ID,
		event.ThreadID,
		event.OrgID,
		event.ActorID,
		event.CreatedAt,
		event.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert discussion event: %w", err)
	}

	return nil
}

// ListByThread retrieves every event of a thread ordered by created_at ascending.
func (r *EventsRepo) ListByThread(ctx context.Context, threadID string, orgID int64) ([]*DiscussionEvent, error) {
	query := `
		SELECT id, thread_id, org_id, actor_id, created_at, payload
		FROM public.discussion_events
		WHERE thread_id = $1 AND org_id = $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, threadID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query discussion events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListSince retrieves events of a thread appended after the given time, for polling
// clients that fall back from the realtime channel. Limit is capped at 1000.
func (r *EventsRepo) ListSince(ctx context.Context, threadID string, orgID int64, since time.Time, limit int) ([]*DiscussionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, thread_id, org_id, actor_id, created_at, payload
		FROM public.discussion_events
		WHERE thread_id = $1 AND org_id = $2 AND created_at > $3
		ORDER BY created_at ASC, id ASC
		LIMIT $4
	`

	rows, err := r.db.QueryContext(ctx, query, threadID, orgID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query discussion events since cursor: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountByThread returns the number of events in a thread.
func (r *EventsRepo) CountByThread(ctx context.Context, threadID string, orgID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM public.discussion_events
		WHERE thread_id = $1 AND org_id = $2
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, threadID, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count discussion events: %w", err)
	}
	return count, nil
}

func scanEvents(rows *sql.Rows) ([]*DiscussionEvent, error) {
	// Initialize as empty slice so JSON encodes to [] rather than null
	events := make([]*DiscussionEvent, 0)
	for rows.Next() {
		event := &DiscussionEvent{}
		err := rows.Scan(
			&event.ID,
			&event.ThreadID,
			&event.OrgID,
			&event.ActorID,
			&event.CreatedAt,
			&event.Payload,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discussion event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discussion events: %w", err)
	}

	return events, nil
}

// EventService implements EventStore over the repository and, after each successful
// append, pushes the new event to the realtime channel.
type EventService struct {
	repo *EventsRepo
	pub  Publisher
}

// NewEventService creates an event service. pub may be nil when no realtime channel is
// configured (polling-only deployments).
func NewEventService(db *sql.DB, pub Publisher) *EventService {
	return &EventService{
		repo: NewEventsRepo(db),
		pub:  pub,
	}
}

// Append encodes the payload, assigns the event id and timestamp, persists the event and
// publishes it to the realtime channel.
func (s *EventService) Append(ctx context.Context, scope Scope, payload Payload) (*DiscussionEvent, error) {
	encoded, err := EncodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	event := &DiscussionEvent{
		ID:        uuid.NewString(),
		ThreadID:  scope.ThreadID,
		OrgID:     scope.OrgID,
		ActorID:   scope.ActorID,
		CreatedAt: time.Now().UTC(),
		Payload:   encoded,
	}

	if err := s.repo.Insert(ctx, event); err != nil {
		return nil, err
	}

	if s.pub != nil {
		if err := s.pub.Publish(ctx, event.ThreadID, event); err != nil {
			log.Warn().
				Err(err).
				Str("thread_id", event.ThreadID).
				Str("event_id", event.ID).
				Msg("failed to publish appended event; subscribers will catch up on next hydrate")
		}
	}

	return event, nil
}

// ListByThread retrieves every event of a thread.
func (s *EventService) ListByThread(ctx context.Context, threadID string, orgID int64) ([]*DiscussionEvent, error) {
	return s.repo.ListByThread(ctx, threadID, orgID)
}

// ListSince retrieves events appended after the given time.
func (s *EventService) ListSince(ctx context.Context, threadID string, orgID int64, since time.Time, limit int) ([]*DiscussionEvent, error) {
	return s.repo.ListSince(ctx, threadID, orgID, since, limit)
}

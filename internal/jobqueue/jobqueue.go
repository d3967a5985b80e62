/*
Package jobqueue provides a River-based job queue for mention notifications.

When a comment or reply mentions actors, the API schedules one job that fans the mention
out into the mention_notifications table, which the institution app's notification
digest reads. The append path never waits on this: a failed or delayed notification
leaves the discussion log untouched.
*/
package jobqueue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/instiboard/discussiond/internal/discussion"
)

// MentionNotifyArgs represents the arguments for a mention notification job
type MentionNotifyArgs struct {
	EventID  string   `json:"event_id"`
	ThreadID string   `json:"thread_id"`
	OrgID    int64    `json:"org_id"`
	ActorID  string   `json:"actor_id"`
	Mentions []string `json:"mentions"`
}

// Kind returns the job kind for River
func (MentionNotifyArgs) Kind() string {
	return "mention_notify"
}

// MentionNotifyWorker records one notification row per mentioned actor
type MentionNotifyWorker struct {
	river.WorkerDefaults[MentionNotifyArgs]
	pool *pgxpool.Pool
}

// Work processes one mention notification job. Inserts are idempotent on
// (event_id, mentioned_actor) so River retries cannot duplicate notifications.
func (w *MentionNotifyWorker) Work(ctx context.Context, job *river.Job[MentionNotifyArgs]) error {
	args := job.Args

	for _, mentioned := range args.Mentions {
		// Self-mentions are dropped; actors do not need to be told about their own comment.
		if mentioned == args.ActorID {
			continue
		}

		_, err := w.pool.Exec(ctx, `
			INSERT INTO public.mention_notifications (event_id, thread_id, org_id, mentioned_actor, mentioned_by)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (event_id, mentioned_actor) DO NOTHING
		`, args.EventID, args.ThreadID, args.OrgID, mentioned, args.ActorID)
		if err != nil {
			return fmt.Errorf("failed to insert mention notification: %w", err)
		}
	}

	log.Debug().
		Str("event_id", args.EventID).
		Int("mention_count", len(args.Mentions)).
		Msg("recorded mention notifications")

	return nil
}

// JobQueue manages the River job queue
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue creates a new job queue instance
func NewJobQueue(databaseURL string) (*JobQueue, error) {
	config := GetQueueConfig()

	// Create a pgx connection pool
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Create River client
	workers := river.NewWorkers()
	river.AddWorker(workers, &MentionNotifyWorker{pool: pool})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client: client,
		pool:   pool,
		config: config,
	}, nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers and closes the connection pool.
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}

// NotifyMentions queues a mention notification job for an appended event.
func (jq *JobQueue) NotifyMentions(ctx context.Context, ev *discussion.DiscussionEvent, mentions []string) error {
	args := MentionNotifyArgs{
		EventID:  ev.ID,
		ThreadID: ev.ThreadID,
		OrgID:    ev.OrgID,
		ActorID:  ev.ActorID,
		Mentions: mentions,
	}

	_, err := jq.client.Insert(ctx, args, nil)
	if err != nil {
		return fmt.Errorf("failed to queue mention notify job: %w", err)
	}

	return nil
}

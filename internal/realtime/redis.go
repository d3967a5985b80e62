package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/instiboard/discussiond/internal/discussion"
)

const channelPrefix = "discussion:thread:"

// RedisBroker implements Broker over Redis pub/sub, one channel per thread. Redis
// pub/sub drops messages for disconnected subscribers, which fits the engine's model:
// a reconnecting view rehydrates from the store anyway.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker creates a broker from a Redis URL and verifies the connection.
func NewRedisBroker(redisURL string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisBroker{client: client}, nil
}

// NewRedisBrokerWithClient creates a broker from an existing Redis client.
func NewRedisBrokerWithClient(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func channelFor(threadID string) string {
	return channelPrefix + threadID
}

// Publish pushes the event to every subscriber of the thread's channel.
func (b *RedisBroker) Publish(ctx context.Context, threadID string, ev *discussion.DiscussionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event for publish: %w", err)
	}

	if err := b.client.Publish(ctx, channelFor(threadID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe delivers every event published on the thread's channel to fn from a
// dedicated goroutine until Unsubscribe is called or ctx is cancelled. Messages that do
// not decode as events are skipped; the subscriber will pick the event up on its next
// hydrate.
func (b *RedisBroker) Subscribe(ctx context.Context, threadID string, fn EventFunc) (Unsubscribe, error) {
	pubsub := b.client.Subscribe(ctx, channelFor(threadID))

	// Force the subscription to be established before returning, so events published
	// right after Subscribe are not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to thread channel: %w", err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var ev discussion.DiscussionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().
					Err(err).
					Str("thread_id", threadID).
					Msg("skipping undecodable realtime message")
				continue
			}
			fn(&ev)
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			log.Warn().Err(err).Str("thread_id", threadID).Msg("failed to close subscription")
		}
	}, nil
}

package jobqueue

import (
	"os"
	"strconv"

	"github.com/riverqueue/river"
)

// QueueConfig holds the tunable parameters for the mention notification queue.
type QueueConfig struct {
	// MaxWorkers is the number of concurrent workers processing jobs. Mention fan-out is
	// cheap row inserts, so a small pool is plenty.
	MaxWorkers int

	// QueueName is the River queue jobs are inserted into.
	QueueName string
}

// GetQueueConfig returns the queue configuration, honoring the
// DISCUSSIOND_QUEUE_MAX_WORKERS environment override.
func GetQueueConfig() *QueueConfig {
	config := &QueueConfig{
		MaxWorkers: 4,
		QueueName:  river.QueueDefault,
	}

	if raw := os.Getenv("DISCUSSIOND_QUEUE_MAX_WORKERS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			config.MaxWorkers = parsed
		}
	}

	return config
}

// RiverQueueConfig converts our config to River's queue configuration format
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		c.QueueName: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}

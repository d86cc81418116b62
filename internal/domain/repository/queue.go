package repository

import "context"

// PrefetchTask asks the worker to warm the stream cache for one video.
type PrefetchTask struct {
	VideoID    string `json:"video_id"`
	RetryCount int    `json:"retry_count"`
}

// MessageQueue defines the interface for the prefetch queue.
// Implementations should be provided by the infrastructure layer (e.g. RabbitMQ).
type MessageQueue interface {
	// PublishPrefetchTask sends a cache-warming task to the queue.
	// Used by the API server when clients ask for background prefetching.
	PublishPrefetchTask(ctx context.Context, task PrefetchTask) error

	// ConsumePrefetchTasks starts consuming prefetch tasks from the queue.
	// The handler function is called for each received task; a handler
	// error requeues the task with an incremented retry count.
	// Used by the worker service.
	ConsumePrefetchTasks(ctx context.Context, handler func(task PrefetchTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}

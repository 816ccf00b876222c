package queue

import "context"

const (
	// BulkJobQueue carries dispatch work for bulk jobs.
	BulkJobQueue = "bulk-jobs"
	// BulkJobDLQ receives bulk job messages rejected as unprocessable.
	BulkJobDLQ = "dlq.bulk-jobs"
)

// Publisher publishes bulk job messages to the work queue.
type Publisher interface {
	Publish(ctx context.Context, msg JobMessage) error
	Close() error
}

// MessageHandler handles a consumed job message.
type MessageHandler func(ctx context.Context, msg JobMessage) error

// Consumer consumes bulk job messages from the work queue.
type Consumer interface {
	Consume(ctx context.Context, handler MessageHandler) error
	Close() error
}

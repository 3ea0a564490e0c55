package queue

import "context"

// Job processes one message type pulled off the queue. Implementations are
// registered with the consumer at startup and invoked from worker
// goroutines, so Handle must be safe for concurrent calls.
type Job interface {
	// Name identifies the job in logs and metrics.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	Handle(ctx context.Context, payload interface{}) error
}

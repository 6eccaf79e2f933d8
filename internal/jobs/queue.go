package jobs

import (
	"context"
	"errors"

	"github.com/eventdesk/eventdesk/internal/monitoring"
)

// ErrUnknownJobType is returned for envelopes with no registered handler
var ErrUnknownJobType = errors.New("unknown job type")

// Queue accepts jobs; the request path ends at Enqueue
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Consumer delivers envelopes to handle until ctx is cancelled. A handler
// error leaves the job for redelivery, subject to the backend's attempt limit.
type Consumer interface {
	Consume(ctx context.Context, handle func(ctx context.Context, env Envelope) error) error
}

// InlineQueue runs each job synchronously in the caller's goroutine, so the
// request blocks until the job is done. It is meant for tests and
// single-process development only.
type InlineQueue struct {
	dispatcher *Dispatcher
}

func NewInlineQueue(d *Dispatcher) *InlineQueue {
	return &InlineQueue{dispatcher: d}
}

func (q *InlineQueue) Enqueue(ctx context.Context, job Job) error {
	env, err := NewEnvelope(job)
	if err != nil {
		return err
	}
	monitoring.RecordJobEnqueued(env.Type)
	env.Attempt = 1
	return q.dispatcher.Handle(ctx, env)
}

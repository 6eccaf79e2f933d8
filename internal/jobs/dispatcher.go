package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/pkg/logger"
)

// Handler executes one job
type Handler func(ctx context.Context, env Envelope) error

// Dispatcher routes envelopes to handlers by job type
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(jobType string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[jobType] = h
}

// Types lists registered job types
func (d *Dispatcher) Types() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		out = append(out, t)
	}
	return out
}

func (d *Dispatcher) Handle(ctx context.Context, env Envelope) error {
	d.mu.RLock()
	h, ok := d.handlers[env.Type]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, env.Type)
	}

	log := logger.WithFields(map[string]interface{}{
		"job_id":   env.ID,
		"job_type": env.Type,
		"attempt":  env.Attempt,
	})

	start := time.Now()
	err := h(ctx, env)
	if err != nil {
		monitoring.RecordJobProcessed(env.Type, "error", time.Since(start))
		log.With(map[string]interface{}{"error": err.Error()}).Warn("Job failed")
		return err
	}
	monitoring.RecordJobProcessed(env.Type, "ok", time.Since(start))
	log.Debug("Job completed")
	return nil
}

// Typed wraps a handler over a decoded descriptor
func Typed[T Job](fn func(ctx context.Context, job T) error) Handler {
	return func(ctx context.Context, env Envelope) error {
		job, err := Decode[T](env)
		if err != nil {
			return err
		}
		return fn(ctx, job)
	}
}

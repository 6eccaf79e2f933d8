package jobs

import (
	"context"

	"github.com/eventdesk/eventdesk/pkg/logger"
)

// Worker pulls from a Consumer and dispatches each envelope
type Worker struct {
	consumer   Consumer
	dispatcher *Dispatcher
}

func NewWorker(consumer Consumer, dispatcher *Dispatcher) *Worker {
	return &Worker{consumer: consumer, dispatcher: dispatcher}
}

// Run blocks until ctx is cancelled or the consumer fails
func (w *Worker) Run(ctx context.Context) error {
	logger.Info("Job worker started", map[string]interface{}{
		"job_types": w.dispatcher.Types(),
	})
	err := w.consumer.Consume(ctx, w.dispatcher.Handle)
	logger.Info("Job worker stopped", nil)
	return err
}

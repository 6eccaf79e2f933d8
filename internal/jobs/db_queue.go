package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"gorm.io/datatypes"
)

// DBQueue keeps jobs in the jobs table. Workers poll on a ticker and claim
// rows with a conditional UPDATE, so several workers can share one table.
type DBQueue struct {
	jobs         *repository.JobRepository
	maxAttempts  int
	pollInterval time.Duration
	staleAfter   time.Duration
	now          func() time.Time
}

func NewDBQueue(jobs *repository.JobRepository, maxAttempts int, pollInterval time.Duration) *DBQueue {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &DBQueue{
		jobs:         jobs,
		maxAttempts:  maxAttempts,
		pollInterval: pollInterval,
		staleAfter:   15 * time.Minute,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (q *DBQueue) Enqueue(ctx context.Context, job Job) error {
	env, err := NewEnvelope(job)
	if err != nil {
		return err
	}
	now := q.now()
	row := &models.Job{
		ID:         env.ID,
		Type:       env.Type,
		Payload:    datatypes.JSON(env.Payload),
		Status:     models.JobPending,
		RunAt:      now,
		EnqueuedAt: now,
	}
	if err := q.jobs.Create(ctx, row); err != nil {
		return err
	}
	monitoring.RecordJobEnqueued(env.Type)
	return nil
}

// Consume drains runnable jobs on every tick until ctx is cancelled
func (q *DBQueue) Consume(ctx context.Context, handle func(ctx context.Context, env Envelope) error) error {
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		if err := q.Drain(ctx, handle); err != nil {
			logger.Error("Job poll failed", err, nil)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Drain runs claimed jobs until none is runnable
func (q *DBQueue) Drain(ctx context.Context, handle func(ctx context.Context, env Envelope) error) error {
	for ctx.Err() == nil {
		row, err := q.jobs.Claim(ctx, q.now(), q.staleAfter)
		if errors.Is(err, repository.ErrNoJob) {
			return nil
		}
		if err != nil {
			return err
		}
		q.process(ctx, row, handle)
	}
	return nil
}

func (q *DBQueue) process(ctx context.Context, row *models.Job, handle func(ctx context.Context, env Envelope) error) {
	env := Envelope{
		ID:         row.ID,
		Type:       row.Type,
		Payload:    []byte(row.Payload),
		EnqueuedAt: row.EnqueuedAt,
		Attempt:    row.Attempts,
	}

	handleErr := handle(ctx, env)
	var err error
	switch {
	case handleErr == nil:
		err = q.jobs.Complete(ctx, row.ID)
	case row.Attempts >= q.maxAttempts:
		err = q.jobs.Fail(ctx, row.ID, handleErr.Error())
		events.PublishJobFailed(row.ID, row.Type, row.Attempts, handleErr.Error())
		monitoring.RecordJobProcessed(row.Type, "failed", 0)
	default:
		err = q.jobs.Retry(ctx, row.ID, q.now().Add(Backoff(row.Attempts)), handleErr.Error())
	}
	if err != nil {
		logger.Error("Failed to record job outcome", err, map[string]interface{}{
			"job_id":   row.ID,
			"job_type": row.Type,
		})
	}
}

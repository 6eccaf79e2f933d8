package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
)

// ErrNoJob is returned by Claim when nothing is runnable
var ErrNoJob = errors.New("no runnable job")

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Claim marks the oldest runnable job as running and returns it. A job is
// runnable when pending and due, or when its lock is older than staleAfter.
// The conditional UPDATE makes concurrent workers race safely for one row.
func (r *JobRepository) Claim(ctx context.Context, now time.Time, staleAfter time.Duration) (*models.Job, error) {
	db := r.db.WithContext(ctx)
	for attempt := 0; attempt < 3; attempt++ {
		var job models.Job
		err := db.Where("(status = ? AND run_at <= ?) OR (status = ? AND locked_at < ?)",
			models.JobPending, now, models.JobRunning, now.Add(-staleAfter)).
			Order("run_at ASC").Order("enqueued_at ASC").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoJob
		}
		if err != nil {
			return nil, err
		}

		res := db.Model(&models.Job{}).
			Where("id = ? AND status = ? AND attempts = ?", job.ID, job.Status, job.Attempts).
			Updates(map[string]interface{}{
				"status":    models.JobRunning,
				"attempts":  job.Attempts + 1,
				"locked_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			job.Status = models.JobRunning
			job.Attempts++
			job.LockedAt = &now
			return &job, nil
		}
	}
	return nil, ErrNoJob
}

func (r *JobRepository) Complete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    models.JobDone,
			"locked_at": nil,
		}).Error
}

// Retry puts the job back in the queue to run at the given time
func (r *JobRepository) Retry(ctx context.Context, id string, runAt time.Time, lastErr string) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.JobPending,
			"run_at":     runAt,
			"locked_at":  nil,
			"last_error": lastErr,
		}).Error
}

func (r *JobRepository) Fail(ctx context.Context, id string, lastErr string) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.JobFailed,
			"locked_at":  nil,
			"last_error": lastErr,
		}).Error
}

// CountByStatus feeds the queue depth gauges
func (r *JobRepository) CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error) {
	var rows []struct {
		Status models.JobStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.JobStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// Recent lists the newest jobs for the queue view
func (r *JobRepository) Recent(ctx context.Context, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).Order("enqueued_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

// PurgeDone deletes finished jobs older than the cutoff
func (r *JobRepository) PurgeDone(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("status = ? AND updated_at < ?", models.JobDone, before).Delete(&models.Job{})
	return res.RowsAffected, res.Error
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus tracks a row in the database-backed work queue
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is a durable job row used when JOB_QUEUE=database
type Job struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	Type       string         `gorm:"size:100;index;not null" json:"type"`
	Payload    datatypes.JSON `json:"payload"`
	Status     JobStatus      `gorm:"size:20;index;not null;default:pending" json:"status"`
	Attempts   int            `gorm:"not null;default:0" json:"attempts"`
	RunAt      time.Time      `gorm:"index" json:"run_at"`
	LockedAt   *time.Time     `json:"locked_at,omitempty"`
	LastError  string         `gorm:"type:text" json:"last_error,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

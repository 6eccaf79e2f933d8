// Package jobs defines the typed job descriptors handed to the durable work
// queue and the plumbing that moves them between API and worker processes.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/search"
	"github.com/google/uuid"
)

const (
	TypeEventMailer        = "event_mailer"
	TypeClassifyEvents     = "classify_events"
	TypeMassClassification = "mass_classification"
	TypeAlertNotification  = "alert_notification"
)

// Job is a typed descriptor; Type selects the handler on the worker side
type Job interface {
	Type() string
}

// EventMailer sends a report of one event to an address
type EventMailer struct {
	EventID models.EventID `json:"event_id"`
	Email   string         `json:"email"`
	UserID  uint           `json:"user_id"`
}

func (EventMailer) Type() string { return TypeEventMailer }

// ClassifyEvents applies a classification to an explicit id list.
// ClassificationID 0 clears the classification.
type ClassifyEvents struct {
	EventIDs         []models.EventID `json:"event_ids"`
	ClassificationID uint             `json:"classification_id"`
	UserID           uint             `json:"user_id"`
	Reclassify       bool             `json:"reclassify"`
}

func (ClassifyEvents) Type() string { return TypeClassifyEvents }

// MassClassification classifies every event matching Filter at run time
type MassClassification struct {
	ClassificationID uint              `json:"classification_id"`
	Filter           search.MassFilter `json:"filter"`
	UserID           uint              `json:"user_id"`
	Reclassify       bool              `json:"reclassify"`
}

func (MassClassification) Type() string { return TypeMassClassification }

// AlertNotification delivers one notification match
type AlertNotification struct {
	EventID        models.EventID `json:"event_id"`
	NotificationID uint           `json:"notification_id"`
}

func (AlertNotification) Type() string { return TypeAlertNotification }

// Envelope is the wire form of a job on every queue backend
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempt    int             `json:"attempt"`
}

func NewEnvelope(job Job) (Envelope, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshaling %s job: %w", job.Type(), err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       job.Type(),
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into the descriptor type T
func Decode[T Job](env Envelope) (T, error) {
	var job T
	if err := json.Unmarshal(env.Payload, &job); err != nil {
		return job, fmt.Errorf("decoding %s job %s: %w", env.Type, env.ID, err)
	}
	return job, nil
}

package events

import (
	"github.com/eventdesk/eventdesk/internal/models"
)

// PublishEventClassified records a classification change; from and to are 0 for "none"
func PublishEventClassified(id models.EventID, userID uint, from, to uint) {
	GetEventBus().Publish(Event{
		Type:    EventClassified,
		Source:  "classification_service",
		Subject: id.String(),
		UserID:  userID,
		Data: map[string]interface{}{
			"from_classification_id": from,
			"to_classification_id":   to,
		},
	})
}

func PublishEventDeleted(id models.EventID, userID uint) {
	GetEventBus().Publish(Event{
		Type:    EventDeleted,
		Source:  "event_service",
		Subject: id.String(),
		UserID:  userID,
	})
}

func PublishFavoriteToggled(id models.EventID, userID uint, favorited bool) {
	GetEventBus().Publish(Event{
		Type:    EventFavoriteToggled,
		Source:  "favorite_service",
		Subject: id.String(),
		UserID:  userID,
		Data: map[string]interface{}{
			"favorited": favorited,
		},
	})
}

func PublishNoteCreated(note *models.Note) {
	GetEventBus().Publish(Event{
		Type:    EventNoteCreated,
		Source:  "note_service",
		Subject: note.EventID().String(),
		UserID:  note.UserID,
		Data: map[string]interface{}{
			"note_id": note.ID,
		},
	})
}

func PublishNoteDeleted(note *models.Note, userID uint) {
	GetEventBus().Publish(Event{
		Type:    EventNoteDeleted,
		Source:  "note_service",
		Subject: note.EventID().String(),
		UserID:  userID,
		Data: map[string]interface{}{
			"note_id": note.ID,
		},
	})
}

func PublishMassActionEnqueued(jobID string, userID, classificationID uint, filter map[string]interface{}) {
	GetEventBus().Publish(Event{
		Type:   EventMassActionEnqueued,
		Source: "mass_action_service",
		UserID: userID,
		Data: map[string]interface{}{
			"job_id":            jobID,
			"classification_id": classificationID,
			"filter":            filter,
		},
	})
}

func PublishJobFailed(jobID, jobType string, attempt int, errMsg string) {
	GetEventBus().Publish(Event{
		Type:   EventJobFailed,
		Source: "worker",
		Data: map[string]interface{}{
			"job_id":   jobID,
			"job_type": jobType,
			"attempt":  attempt,
			"error":    errMsg,
		},
	})
}

func PublishNotificationSent(id models.EventID, notificationID, userID uint) {
	GetEventBus().Publish(Event{
		Type:    EventNotificationSent,
		Source:  "notification_service",
		Subject: id.String(),
		UserID:  userID,
		Data: map[string]interface{}{
			"notification_id": notificationID,
		},
	})
}

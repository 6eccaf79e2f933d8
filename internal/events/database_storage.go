package events

import (
	"encoding/json"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseEventStorage keeps the audit trail in system_events
type DatabaseEventStorage struct {
	db *gorm.DB
}

func NewDatabaseEventStorage(db *gorm.DB) *DatabaseEventStorage {
	return &DatabaseEventStorage{db: db}
}

func (s *DatabaseEventStorage) Store(event Event) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}

	return s.db.Create(&models.SystemEvent{
		EventID:   event.ID,
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
		Source:    event.Source,
		Subject:   event.Subject,
		UserID:    event.UserID,
		Data:      datatypes.JSON(dataJSON),
	}).Error
}

func (s *DatabaseEventStorage) Query(filters EventFilters) ([]Event, error) {
	query := s.db.Model(&models.SystemEvent{})

	if len(filters.Types) > 0 {
		types := make([]string, len(filters.Types))
		for i, t := range filters.Types {
			types[i] = string(t)
		}
		query = query.Where("type IN ?", types)
	}
	if filters.Subject != "" {
		query = query.Where("subject = ?", filters.Subject)
	}
	if filters.UserID != 0 {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if !filters.StartTime.IsZero() {
		query = query.Where("timestamp >= ?", filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		query = query.Where("timestamp <= ?", filters.EndTime)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 1000
	}
	query = query.Order("timestamp DESC").Limit(limit)

	var rows []models.SystemEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]Event, len(rows))
	for i, se := range rows {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(se.Data), &data); err != nil {
			data = make(map[string]interface{})
		}
		out[i] = Event{
			ID:        se.EventID,
			Type:      EventType(se.Type),
			Timestamp: se.Timestamp,
			Source:    se.Source,
			Subject:   se.Subject,
			UserID:    se.UserID,
			Data:      data,
		}
	}
	return out, nil
}

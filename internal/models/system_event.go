package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemEvent is one audit-trail entry: who classified, starred, annotated
// or deleted which alert. Data carries the action-specific details.
type SystemEvent struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	EventID   string         `gorm:"uniqueIndex;size:64" json:"event_id"`
	Type      string         `gorm:"index;size:100" json:"type"`
	Timestamp time.Time      `gorm:"index" json:"timestamp"`
	Source    string         `gorm:"size:100" json:"source"`
	Subject   string         `gorm:"index;size:64" json:"subject,omitempty"`
	UserID    uint           `gorm:"index" json:"user_id,omitempty"`
	Data      datatypes.JSON `json:"data"`
}

// TableName overrides the table name
func (SystemEvent) TableName() string {
	return "system_events"
}

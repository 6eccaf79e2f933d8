package models

import "time"

// Notification subscribes a user to events of one signature, optionally
// narrowed by sensor and addresses. Matches are delivered by email and/or webhook.
type Notification struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	SigID      uint       `gorm:"index;not null" json:"sig_id"`
	SensorID   *uint      `json:"sensor_id,omitempty"`
	IPSrc      *int64     `json:"ip_src,omitempty"`
	IPDst      *int64     `json:"ip_dst,omitempty"`
	Email      string     `gorm:"size:255" json:"email,omitempty"`
	WebhookURL string     `gorm:"size:500" json:"webhook_url,omitempty"`
	Enabled    bool       `gorm:"default:true" json:"enabled"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Matches reports whether the event satisfies every condition of the
// notification. The event's IP header must be loaded for address conditions.
func (n *Notification) Matches(e *Event) bool {
	if !n.Enabled || n.SigID != e.SigID {
		return false
	}
	if n.SensorID != nil && *n.SensorID != e.SID {
		return false
	}
	if n.IPSrc != nil && (e.IP == nil || e.IP.IPSrc != *n.IPSrc) {
		return false
	}
	if n.IPDst != nil && (e.IP == nil || e.IP.IPDst != *n.IPDst) {
		return false
	}
	return true
}

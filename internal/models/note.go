package models

import (
	"errors"
	"time"
)

var ErrNoteNotFound = errors.New("note not found")

// Note is an analyst comment attached to an event
type Note struct {
	ID        uint      `gorm:"primaryKey" json:"id" xml:"id"`
	SID       uint      `gorm:"column:sid;index:idx_notes_event;not null" json:"sid" xml:"sid"`
	CID       uint      `gorm:"column:cid;index:idx_notes_event;not null" json:"cid" xml:"cid"`
	UserID    uint      `gorm:"index;not null" json:"user_id" xml:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body" xml:"body"`
	CreatedAt time.Time `json:"created_at" xml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" xml:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty" xml:"-"`
}

func (Note) TableName() string {
	return "notes"
}

func (n *Note) EventID() EventID {
	return EventID{SID: n.SID, CID: n.CID}
}

// Favorite marks an event as starred by a user. The unique index makes
// concurrent toggles converge instead of duplicating rows.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SID       uint      `gorm:"column:sid;uniqueIndex:idx_favorites_event_user;not null" json:"sid"`
	CID       uint      `gorm:"column:cid;uniqueIndex:idx_favorites_event_user;not null" json:"cid"`
	UserID    uint      `gorm:"uniqueIndex:idx_favorites_event_user;index;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}

package models

import "errors"

var ErrClassificationNotFound = errors.New("classification not found")

// Signature is the rule that fired. Priority is the severity shown in the console.
type Signature struct {
	SigID       uint   `gorm:"column:sig_id;primaryKey" json:"sig_id" xml:"sig_id"`
	Name        string `gorm:"column:sig_name;size:255;index;not null" json:"sig_name" xml:"sig_name"`
	ClassID     uint   `gorm:"column:sig_class_id;index" json:"sig_class_id" xml:"sig_class_id"`
	Priority    int    `gorm:"column:sig_priority;index" json:"sig_priority" xml:"sig_priority"`
	Rev         uint   `gorm:"column:sig_rev" json:"sig_rev" xml:"sig_rev"`
	SigSID      uint   `gorm:"column:sig_sid" json:"sig_sid" xml:"sig_sid"`
	SigGID      uint   `gorm:"column:sig_gid" json:"sig_gid" xml:"sig_gid"`
	EventsCount int    `gorm:"not null;default:0" json:"events_count" xml:"events_count"`
}

func (Signature) TableName() string {
	return "signature"
}

// Sensor is the IDS probe that produced events
type Sensor struct {
	SID         uint   `gorm:"column:sid;primaryKey" json:"sid" xml:"sid"`
	Hostname    string `gorm:"size:255" json:"hostname" xml:"hostname"`
	Interface   string `gorm:"size:255" json:"interface" xml:"interface"`
	Name        string `gorm:"size:255" json:"name" xml:"name"`
	EventsCount int    `gorm:"not null;default:0" json:"events_count" xml:"events_count"`
}

func (Sensor) TableName() string {
	return "sensor"
}

// DisplayName prefers the configured name over the hostname
func (s *Sensor) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Hostname
}

// Classification is a disposition category with a running event count
type Classification struct {
	ID          uint   `gorm:"primaryKey" json:"id" xml:"id"`
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name" xml:"name"`
	Description string `gorm:"size:255" json:"description" xml:"description"`
	Hotkey      int    `gorm:"index" json:"hotkey" xml:"hotkey"`
	Locked      bool   `gorm:"default:false" json:"locked" xml:"locked"`
	EventsCount int    `gorm:"not null;default:0" json:"events_count" xml:"events_count"`
}

func (Classification) TableName() string {
	return "classifications"
}

package models

import "time"

// Setting keys read by the console
const (
	SettingLookups               = "lookups"
	SettingSignatureLookup       = "signature_lookup"
	SettingPacketCaptureType     = "packet_capture_type"
	SettingPacketCaptureURL      = "packet_capture_url"
	SettingPacketCaptureUser     = "packet_capture_user"
	SettingPacketCapturePassword = "packet_capture_password"
)

// Setting is a name/value pair editable by administrators
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

package models

import (
	"errors"
	"time"
)

var ErrEventNotFound = errors.New("event not found")

// Protocol names used for the event's transport sub-record
const (
	ProtocolTCP  = "tcp"
	ProtocolUDP  = "udp"
	ProtocolICMP = "icmp"
)

// Event is one IDS alert, keyed by (sid, cid). Rows are written by the sensor
// importer; this application only classifies, annotates and deletes them.
type Event struct {
	SID              uint      `gorm:"column:sid;primaryKey;autoIncrement:false" json:"sid" xml:"sid"`
	CID              uint      `gorm:"column:cid;primaryKey;autoIncrement:false" json:"cid" xml:"cid"`
	SigID            uint      `gorm:"column:signature;index;not null" json:"sig_id" xml:"sig_id"`
	ClassificationID *uint     `gorm:"index" json:"classification_id" xml:"classification_id,omitempty"`
	UserID           *uint     `gorm:"index" json:"user_id" xml:"user_id,omitempty"`
	UsersCount       int       `gorm:"not null;default:0;index" json:"users_count" xml:"users_count"`
	NotesCount       int       `gorm:"not null;default:0;index" json:"notes_count" xml:"notes_count"`
	Timestamp        time.Time `gorm:"index;not null" json:"timestamp" xml:"timestamp"`

	// Relations are loaded explicitly by the repository (composite keys).
	Sensor         *Sensor         `gorm:"-" json:"sensor,omitempty" xml:"sensor,omitempty"`
	Signature      *Signature      `gorm:"-" json:"signature,omitempty" xml:"signature,omitempty"`
	Classification *Classification `gorm:"-" json:"classification,omitempty" xml:"classification,omitempty"`
	User           *User           `gorm:"-" json:"user,omitempty" xml:"-"`
	IP             *IPHeader       `gorm:"-" json:"ip,omitempty" xml:"ip,omitempty"`
	TCP            *TCPHeader      `gorm:"-" json:"tcp,omitempty" xml:"tcp,omitempty"`
	UDP            *UDPHeader      `gorm:"-" json:"udp,omitempty" xml:"udp,omitempty"`
	ICMP           *ICMPHeader     `gorm:"-" json:"icmp,omitempty" xml:"icmp,omitempty"`
	Payload        *Payload        `gorm:"-" json:"payload,omitempty" xml:"payload,omitempty"`
}

// TableName keeps the Snort schema name
func (Event) TableName() string {
	return "event"
}

// ID returns the composite key
func (e *Event) ID() EventID {
	return EventID{SID: e.SID, CID: e.CID}
}

// HTMLID is the DOM id used by the web console
func (e *Event) HTMLID() string {
	return "event_" + e.ID().String()
}

// IsClassified reports whether a classification is assigned
func (e *Event) IsClassified() bool {
	return e.ClassificationID != nil && *e.ClassificationID != 0
}

// Protocol returns which transport sub-record the event carries
func (e *Event) Protocol() string {
	switch {
	case e.TCP != nil:
		return ProtocolTCP
	case e.UDP != nil:
		return ProtocolUDP
	case e.ICMP != nil:
		return ProtocolICMP
	default:
		return ""
	}
}

// SourcePort is 0 for ICMP or events without a transport header
func (e *Event) SourcePort() int {
	switch {
	case e.TCP != nil:
		return e.TCP.SrcPort
	case e.UDP != nil:
		return e.UDP.SrcPort
	default:
		return 0
	}
}

// DestinationPort is 0 for ICMP or events without a transport header
func (e *Event) DestinationPort() int {
	switch {
	case e.TCP != nil:
		return e.TCP.DstPort
	case e.UDP != nil:
		return e.UDP.DstPort
	default:
		return 0
	}
}

// SourceIP returns the formatted source address or ""
func (e *Event) SourceIP() string {
	if e.IP == nil {
		return ""
	}
	return e.IP.SrcAddr().String()
}

// DestinationIP returns the formatted destination address or ""
func (e *Event) DestinationIP() string {
	if e.IP == nil {
		return ""
	}
	return e.IP.DstAddr().String()
}

// Severity is the signature priority, 0 when the signature is not loaded
func (e *Event) Severity() int {
	if e.Signature == nil {
		return 0
	}
	return e.Signature.Priority
}

// PrettyTime renders "3:04 PM" for events from today and "01/02/2006" otherwise
func (e *Event) PrettyTime(now time.Time) string {
	ts := e.Timestamp.In(now.Location())
	y1, m1, d1 := ts.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return ts.Format("3:04 PM")
	}
	return ts.Format("01/02/2006")
}

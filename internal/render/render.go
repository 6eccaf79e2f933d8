// Package render turns events into the representations the console serves:
// JSON summaries, XML and CSV exports, PDF and HTML reports and plain text mail.
package render

import (
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
)

// Output formats
const (
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

var contentTypes = map[string]string{
	FormatJSON: "application/json; charset=utf-8",
	FormatXML:  "application/xml; charset=utf-8",
	FormatCSV:  "text/csv; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatHTML: "text/html; charset=utf-8",
}

// ContentType returns the MIME type for a format
func ContentType(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return contentTypes[FormatJSON]
}

// Negotiate picks a format from an explicit ?format= value, then the Accept
// header, defaulting to JSON. allowed limits the choice; nil allows all.
func Negotiate(format, accept string, allowed ...string) string {
	ok := func(f string) bool {
		if _, known := contentTypes[f]; !known {
			return false
		}
		if len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == f {
				return true
			}
		}
		return false
	}

	if f := strings.ToLower(strings.TrimSpace(format)); ok(f) {
		return f
	}

	for _, part := range strings.Split(accept, ",") {
		mime := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		var f string
		switch mime {
		case "application/json":
			f = FormatJSON
		case "application/xml", "text/xml":
			f = FormatXML
		case "text/csv":
			f = FormatCSV
		case "application/pdf":
			f = FormatPDF
		case "text/html":
			f = FormatHTML
		}
		if f != "" && ok(f) {
			return f
		}
	}
	return FormatJSON
}

// Report is everything shown on an event's detail page
type Report struct {
	Event        *models.Event
	Notes        []models.Note
	SignatureURL string
	Generated    time.Time
}

// Summary is the compact JSON form of a single event
type Summary struct {
	SID     uint             `json:"sid"`
	CID     uint             `json:"cid"`
	IP      *models.IPHeader `json:"ip"`
	SrcIP   string           `json:"src_ip"`
	SrcPort *int             `json:"src_port"`
	DstIP   string           `json:"dst_ip"`
	DstPort *int             `json:"dst_port"`
	Type    string           `json:"type"`
	Proto   interface{}      `json:"proto"`
	Payload string           `json:"payload"`
	Hex     string           `json:"payload_hex"`
	Event   *models.Event    `json:"event"`
	Notes   []models.Note    `json:"notes"`
}

// Summarize builds the JSON show representation
func Summarize(r Report) Summary {
	e := r.Event
	s := Summary{
		SID:   e.SID,
		CID:   e.CID,
		IP:    e.IP,
		SrcIP: e.SourceIP(),
		DstIP: e.DestinationIP(),
		Type:  e.Protocol(),
		Event: e,
		Notes: r.Notes,
	}
	if s.Notes == nil {
		s.Notes = []models.Note{}
	}
	switch s.Type {
	case models.ProtocolTCP:
		s.Proto = e.TCP
	case models.ProtocolUDP:
		s.Proto = e.UDP
	case models.ProtocolICMP:
		s.Proto = e.ICMP
	}
	if s.Type == models.ProtocolTCP || s.Type == models.ProtocolUDP {
		src, dst := e.SourcePort(), e.DestinationPort()
		s.SrcPort, s.DstPort = &src, &dst
	}
	if e.Payload != nil {
		s.Payload = e.Payload.ASCII()
		s.Hex = e.Payload.Data
	}
	return s
}

func classificationName(e *models.Event) string {
	if e.Classification != nil {
		return e.Classification.Name
	}
	return "Unclassified"
}

func signatureName(e *models.Event) string {
	if e.Signature != nil {
		return e.Signature.Name
	}
	return ""
}

func sensorName(e *models.Event) string {
	if e.Sensor != nil {
		return e.Sensor.DisplayName()
	}
	return ""
}

func noteAuthor(n models.Note) string {
	if n.User == nil {
		return "unknown"
	}
	if n.User.Name != "" {
		return n.User.Name
	}
	return n.User.Email
}

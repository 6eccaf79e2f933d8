package render

import (
	"encoding/xml"
	"io"

	"github.com/eventdesk/eventdesk/internal/models"
)

type xmlDocument struct {
	XMLName xml.Name       `xml:"eventdesk"`
	Events  []models.Event `xml:"event"`
	Notes   []models.Note  `xml:"notes>note,omitempty"`
}

// EventXML writes one event with its notes under an <eventdesk> root
func EventXML(w io.Writer, r Report) error {
	return writeXML(w, xmlDocument{Events: []models.Event{*r.Event}, Notes: r.Notes})
}

// EventsXML writes an export of several events
func EventsXML(w io.Writer, events []models.Event) error {
	return writeXML(w, xmlDocument{Events: events})
}

func writeXML(w io.Writer, doc xmlDocument) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Flush()
}

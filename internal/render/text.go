package render

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Text writes the plain-text event report used in mail bodies
func Text(w io.Writer, r Report) error {
	e := r.Event
	var b strings.Builder

	fmt.Fprintf(&b, "Event %s\n", e.ID())
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 6+len(e.ID().String())))
	fmt.Fprintf(&b, "Signature:      %s\n", signatureName(e))
	fmt.Fprintf(&b, "Severity:       %d\n", e.Severity())
	fmt.Fprintf(&b, "Sensor:         %s\n", sensorName(e))
	fmt.Fprintf(&b, "Timestamp:      %s\n", e.Timestamp.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "Classification: %s\n", classificationName(e))
	if e.IP != nil {
		fmt.Fprintf(&b, "Source:         %s%s\n", e.SourceIP(), portSuffix(e.SourcePort()))
		fmt.Fprintf(&b, "Destination:    %s%s\n", e.DestinationIP(), portSuffix(e.DestinationPort()))
	}
	if p := e.Protocol(); p != "" {
		fmt.Fprintf(&b, "Protocol:       %s\n", strings.ToUpper(p))
	}
	if r.SignatureURL != "" {
		fmt.Fprintf(&b, "Reference:      %s\n", r.SignatureURL)
	}
	if e.Payload != nil {
		fmt.Fprintf(&b, "\nPayload:\n%s\n", e.Payload.ASCII())
	}
	if len(r.Notes) > 0 {
		b.WriteString("\nNotes:\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "- %s (%s): %s\n", noteAuthor(n), n.CreatedAt.UTC().Format("2006-01-02 15:04"), n.Body)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func portSuffix(p int) string {
	if p == 0 {
		return ""
	}
	return fmt.Sprintf(":%d", p)
}

package render

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
)

var csvHeader = []string{
	"sid", "cid", "timestamp", "sensor", "signature", "severity", "classification",
	"ip_src", "src_port", "ip_dst", "dst_port", "protocol", "notes_count", "users_count",
}

// EventsCSV writes one row per event after a header row
func EventsCSV(w io.Writer, events []models.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range events {
		if err := cw.Write(csvRow(&events[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(e *models.Event) []string {
	port := func(p int) string {
		if p == 0 {
			return ""
		}
		return strconv.Itoa(p)
	}
	classification := ""
	if e.Classification != nil {
		classification = e.Classification.Name
	}
	return []string{
		strconv.FormatUint(uint64(e.SID), 10),
		strconv.FormatUint(uint64(e.CID), 10),
		e.Timestamp.UTC().Format(time.RFC3339),
		sensorName(e),
		signatureName(e),
		strconv.Itoa(e.Severity()),
		classification,
		e.SourceIP(),
		port(e.SourcePort()),
		e.DestinationIP(),
		port(e.DestinationPort()),
		e.Protocol(),
		strconv.Itoa(e.NotesCount),
		strconv.Itoa(e.UsersCount),
	}
}

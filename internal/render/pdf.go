package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// PDF writes a one-event report
func PDF(w io.Writer, r Report) error {
	e := r.Event
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Event %s", e.ID()), true)
	pdf.SetCreator("eventdesk", true)
	if !r.Generated.IsZero() {
		pdf.SetCreationDate(r.Generated)
	}
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Event %s", e.ID())), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(signatureName(e)), "", "L", false)
	pdf.Ln(4)

	rows := [][2]string{
		{"Severity", fmt.Sprintf("%d", e.Severity())},
		{"Sensor", sensorName(e)},
		{"Timestamp", e.Timestamp.UTC().Format(time.RFC1123)},
		{"Classification", classificationName(e)},
		{"Source", e.SourceIP() + portSuffix(e.SourcePort())},
		{"Destination", e.DestinationIP() + portSuffix(e.DestinationPort())},
		{"Protocol", strings.ToUpper(e.Protocol())},
	}
	if r.SignatureURL != "" {
		rows = append(rows, [2]string{"Reference", r.SignatureURL})
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 7, tr(row[0]), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, tr(row[1]), "1", 1, "L", false, 0, "")
	}

	if e.Payload != nil {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Payload", "", 1, "L", false, 0, "")
		pdf.SetFont("Courier", "", 8)
		pdf.MultiCell(0, 4, e.Payload.ASCII(), "1", "L", false)
	}

	if len(r.Notes) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Notes", "", 1, "L", false, 0, "")
		for _, n := range r.Notes {
			pdf.SetFont("Helvetica", "B", 9)
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s - %s", noteAuthor(n), n.CreatedAt.UTC().Format("2006-01-02 15:04"))), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(n.Body), "", "L", false)
			pdf.Ln(2)
		}
	}

	return pdf.Output(w)
}

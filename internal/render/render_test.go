package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	classID := uint(3)
	e := &models.Event{
		SID:              1,
		CID:              42,
		SigID:            7,
		ClassificationID: &classID,
		Timestamp:        time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Sensor:           &models.Sensor{SID: 1, Hostname: "ids-edge-1"},
		Signature:        &models.Signature{SigID: 7, Name: "ET WEB_SERVER <script> in URI", Priority: 2},
		Classification:   &models.Classification{ID: 3, Name: "Attempted Recon"},
		IP:               &models.IPHeader{IPSrc: 167772161, IPDst: 3232235786},
		TCP:              &models.TCPHeader{SrcPort: 51000, DstPort: 80},
		Payload:          &models.Payload{Data: "474554202f0d0a"},
	}
	return Report{
		Event: e,
		Notes: []models.Note{{
			ID:        1,
			SID:       1,
			CID:       42,
			Body:      "seen from the scanner range",
			CreatedAt: time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC),
			User:      &models.User{Name: "Dana"},
		}},
		SignatureURL: "http://rootedyour.com/snortsid?sid=1-2001",
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		format, accept string
		allowed        []string
		want           string
	}{
		{"xml", "", nil, FormatXML},
		{"PDF", "application/json", nil, FormatPDF},
		{"", "text/csv", nil, FormatCSV},
		{"", "text/html,application/xhtml+xml;q=0.9", nil, FormatHTML},
		{"", "*/*", nil, FormatJSON},
		{"bogus", "", nil, FormatJSON},
		{"pdf", "", []string{FormatJSON, FormatXML, FormatCSV}, FormatJSON},
		{"", "application/pdf, text/xml", []string{FormatJSON, FormatXML}, FormatXML},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Negotiate(tt.format, tt.accept, tt.allowed...), "%q %q", tt.format, tt.accept)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleReport())
	assert.Equal(t, "10.0.0.1", s.SrcIP)
	assert.Equal(t, "192.168.1.10", s.DstIP)
	require.NotNil(t, s.SrcPort)
	assert.Equal(t, 51000, *s.SrcPort)
	assert.Equal(t, models.ProtocolTCP, s.Type)
	assert.Equal(t, "GET /..", s.Payload)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tcp_dport":80`)

	icmp := sampleReport()
	icmp.Event.TCP = nil
	icmp.Event.ICMP = &models.ICMPHeader{Type: 8}
	s = Summarize(icmp)
	assert.Nil(t, s.SrcPort)
	assert.Equal(t, models.ProtocolICMP, s.Type)
}

func TestEventXML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EventXML(&buf, sampleReport()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<eventdesk>")
	assert.Contains(t, out, "<sid>1</sid>")
	assert.Contains(t, out, "<sig_name>ET WEB_SERVER &lt;script&gt; in URI</sig_name>")
	assert.Contains(t, out, "<tcp_dport>80</tcp_dport>")
	assert.Contains(t, out, "<body>seen from the scanner range</body>")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</eventdesk>"))
}

func TestEventsCSV(t *testing.T) {
	r := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, EventsCSV(&buf, []models.Event{*r.Event}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{
		"1", "42", "2024-03-10T12:00:00Z", "ids-edge-1", "ET WEB_SERVER <script> in URI", "2",
		"Attempted Recon", "10.0.0.1", "51000", "192.168.1.10", "80", "tcp", "0", "0",
	}, records[1])
}

func TestHTMLEscapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, `id="event_1-42"`)
	assert.Contains(t, out, "ET WEB_SERVER &lt;script&gt; in URI")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "10.0.0.1:51000")
	assert.Contains(t, out, "Dana")
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "Event 1-42")
	assert.Contains(t, out, "Classification: Attempted Recon")
	assert.Contains(t, out, "Destination:    192.168.1.10:80")
	assert.Contains(t, out, "- Dana (2024-03-10 13:00): seen from the scanner range")
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	r := sampleReport()
	r.Generated = time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	require.NoError(t, PDF(&buf, r))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

package pcap

import (
	"net/url"
	"testing"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpEvent() *models.Event {
	return &models.Event{
		SID:       1,
		CID:       42,
		Timestamp: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		IP:        &models.IPHeader{IPSrc: 167772161, IPDst: 3232235786},
		TCP:       &models.TCPHeader{SrcPort: 51000, DstPort: 443},
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "openfpc", Resolve("OpenFPC").Name())
	assert.Equal(t, "solera", Resolve(" solera ").Name())
	assert.Nil(t, Resolve(""))
	assert.Nil(t, Resolve("moloch"))
}

func TestOpenFPCURL(t *testing.T) {
	raw, err := OpenFPC{}.URL(tcpEvent(), Options{BaseURL: "https://fpc.example.com/openfpc/cgi-bin/extract.cgi", User: "ofpc", Password: "pw"})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "fetch", q.Get("action"))
	assert.Equal(t, "10.0.0.1", q.Get("srcip"))
	assert.Equal(t, "192.168.1.10", q.Get("dstip"))
	assert.Equal(t, "51000", q.Get("srcport"))
	assert.Equal(t, "443", q.Get("dstport"))
	assert.Equal(t, "6", q.Get("proto"))
	assert.Equal(t, "1710072000", q.Get("timestamp"))
	assert.Equal(t, "1710071700", q.Get("stime"))
	assert.Equal(t, "1710072300", q.Get("etime"))
	assert.Equal(t, "ofpc", q.Get("user"))
}

func TestSoleraURL(t *testing.T) {
	raw, err := Solera{}.URL(tcpEvent(), Options{BaseURL: "https://solera.example.com/", Window: time.Minute})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/ws/pcap", u.Path)
	assert.Equal(t, "deepsee", u.Query().Get("method"))
	assert.Equal(t,
		"/timespan/03.10.2024.11.59.00.03.10.2024.12.01.00/ipv4_address/10.0.0.1_and_192.168.1.10/tcp_port/51000_and_443/data.pcap",
		u.Query().Get("path"))
	assert.Empty(t, u.Query().Get("user"))
}

func TestURLErrors(t *testing.T) {
	_, err := OpenFPC{}.URL(tcpEvent(), Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = Solera{}.URL(&models.Event{}, Options{BaseURL: "https://solera"})
	assert.ErrorIs(t, err, ErrNoIPHeader)
}

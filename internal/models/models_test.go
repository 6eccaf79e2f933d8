package models

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventID(t *testing.T) {
	id, err := ParseEventID("1-100")
	require.NoError(t, err)
	assert.Equal(t, EventID{SID: 1, CID: 100}, id)
	assert.Equal(t, "1-100", id.String())

	for _, bad := range []string{"", "1", "1-2-3", "a-1", "1-b", "-1"} {
		_, err := ParseEventID(bad)
		assert.ErrorIs(t, err, ErrInvalidEventID, bad)
	}
}

func TestParseEventIDList(t *testing.T) {
	ids, err := ParseEventIDList("1-100, 1-101,,1-100")
	require.NoError(t, err)
	assert.Equal(t, []EventID{{1, 100}, {1, 101}}, ids)
	assert.Equal(t, "1-100,1-101", JoinEventIDs(ids))

	_, err = ParseEventIDList("1-100,nope")
	assert.ErrorIs(t, err, ErrInvalidEventID)
}

func TestEventPorts(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		protocol string
		src, dst int
	}{
		{"tcp", Event{TCP: &TCPHeader{SrcPort: 1234, DstPort: 80}}, ProtocolTCP, 1234, 80},
		{"udp", Event{UDP: &UDPHeader{SrcPort: 53, DstPort: 5353}}, ProtocolUDP, 53, 5353},
		{"icmp", Event{ICMP: &ICMPHeader{Type: 8}}, ProtocolICMP, 0, 0},
		{"none", Event{}, "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.protocol, tt.event.Protocol())
			assert.Equal(t, tt.src, tt.event.SourcePort())
			assert.Equal(t, tt.dst, tt.event.DestinationPort())
		})
	}
}

func TestPrettyTime(t *testing.T) {
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

	today := Event{Timestamp: time.Date(2024, 3, 10, 9, 5, 0, 0, time.UTC)}
	assert.Equal(t, "9:05 AM", today.PrettyTime(now))

	older := Event{Timestamp: time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)}
	assert.Equal(t, "03/09/2024", older.PrettyTime(now))
}

func TestAddrConversion(t *testing.T) {
	addr := netip.MustParseAddr("192.168.1.10")
	v, ok := AddrToUint32(addr)
	require.True(t, ok)
	assert.Equal(t, uint32(3232235786), v)
	assert.Equal(t, addr, Uint32ToAddr(v))

	_, ok = AddrToUint32(netip.MustParseAddr("::1"))
	assert.False(t, ok)

	h := IPHeader{IPSrc: int64(v), IPDst: 167772161}
	assert.Equal(t, "192.168.1.10", h.SrcAddr().String())
	assert.Equal(t, "10.0.0.1", h.DstAddr().String())
}

func TestPayloadASCII(t *testing.T) {
	p := Payload{Data: "474554202f0d0a"}
	assert.Equal(t, "GET /..", p.ASCII())

	bad := Payload{Data: "zz"}
	assert.Nil(t, bad.Bytes())
	assert.Equal(t, "", bad.ASCII())
}

func TestNotificationMatches(t *testing.T) {
	sensor := uint(2)
	src := int64(167772161)
	n := Notification{SigID: 7, SensorID: &sensor, IPSrc: &src, Enabled: true}

	match := &Event{SID: 2, SigID: 7, IP: &IPHeader{IPSrc: src}}
	assert.True(t, n.Matches(match))

	assert.False(t, n.Matches(&Event{SID: 3, SigID: 7, IP: &IPHeader{IPSrc: src}}))
	assert.False(t, n.Matches(&Event{SID: 2, SigID: 8, IP: &IPHeader{IPSrc: src}}))
	assert.False(t, n.Matches(&Event{SID: 2, SigID: 7}))

	n.Enabled = false
	assert.False(t, n.Matches(match))
}

func TestUserPageSize(t *testing.T) {
	var nilUser *User
	assert.Equal(t, DefaultPerPageCount, nilUser.PageSize())
	assert.Equal(t, 20, (&User{PerPageCount: 20}).PageSize())
	assert.Equal(t, DefaultPerPageCount, (&User{}).PageSize())
}

func TestParseIPv4(t *testing.T) {
	v, err := ParseIPv4(" 10.0.0.1 ")
	require.NoError(t, err)
	assert.Equal(t, uint32(167772161), v)

	_, err = ParseIPv4("fe80::1")
	assert.Error(t, err)
	_, err = ParseIPv4("not-an-ip")
	assert.Error(t, err)
}

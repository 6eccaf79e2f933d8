package models

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"
)

// IPHeader holds addresses as unsigned 32-bit integers, the way the sensor writes them
type IPHeader struct {
	SID      uint  `gorm:"column:sid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	CID      uint  `gorm:"column:cid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	IPSrc    int64 `gorm:"column:ip_src;index" json:"ip_src" xml:"ip_src"`
	IPDst    int64 `gorm:"column:ip_dst;index" json:"ip_dst" xml:"ip_dst"`
	Version  int   `gorm:"column:ip_ver" json:"ip_ver" xml:"ip_ver"`
	HLen     int   `gorm:"column:ip_hlen" json:"ip_hlen" xml:"ip_hlen"`
	TOS      int   `gorm:"column:ip_tos" json:"ip_tos" xml:"ip_tos"`
	Len      int   `gorm:"column:ip_len" json:"ip_len" xml:"ip_len"`
	ID       int   `gorm:"column:ip_id" json:"ip_id" xml:"ip_id"`
	Flags    int   `gorm:"column:ip_flags" json:"ip_flags" xml:"ip_flags"`
	Off      int   `gorm:"column:ip_off" json:"ip_off" xml:"ip_off"`
	TTL      int   `gorm:"column:ip_ttl" json:"ip_ttl" xml:"ip_ttl"`
	Proto    int   `gorm:"column:ip_proto" json:"ip_proto" xml:"ip_proto"`
	Checksum int   `gorm:"column:ip_csum" json:"ip_csum" xml:"ip_csum"`
}

func (IPHeader) TableName() string {
	return "iphdr"
}

func (h *IPHeader) SrcAddr() netip.Addr { return Uint32ToAddr(uint32(h.IPSrc)) }
func (h *IPHeader) DstAddr() netip.Addr { return Uint32ToAddr(uint32(h.IPDst)) }

// Uint32ToAddr converts the sensor's integer encoding to an IPv4 address
func Uint32ToAddr(v uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// ParseIPv4 parses dotted-quad text into the sensor's integer encoding
func ParseIPv4(s string) (uint32, error) {
	a, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	v, ok := AddrToUint32(a)
	if !ok {
		return 0, fmt.Errorf("not an IPv4 address: %s", s)
	}
	return v, nil
}

// AddrToUint32 is the inverse of Uint32ToAddr; non-IPv4 addresses return false
func AddrToUint32(a netip.Addr) (uint32, bool) {
	a = a.Unmap()
	if !a.Is4() {
		return 0, false
	}
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), true
}

type TCPHeader struct {
	SID      uint  `gorm:"column:sid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	CID      uint  `gorm:"column:cid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	SrcPort  int   `gorm:"column:tcp_sport;index" json:"tcp_sport" xml:"tcp_sport"`
	DstPort  int   `gorm:"column:tcp_dport;index" json:"tcp_dport" xml:"tcp_dport"`
	Seq      int64 `gorm:"column:tcp_seq" json:"tcp_seq" xml:"tcp_seq"`
	Ack      int64 `gorm:"column:tcp_ack" json:"tcp_ack" xml:"tcp_ack"`
	Off      int   `gorm:"column:tcp_off" json:"tcp_off" xml:"tcp_off"`
	Res      int   `gorm:"column:tcp_res" json:"tcp_res" xml:"tcp_res"`
	Flags    int   `gorm:"column:tcp_flags" json:"tcp_flags" xml:"tcp_flags"`
	Win      int   `gorm:"column:tcp_win" json:"tcp_win" xml:"tcp_win"`
	Checksum int   `gorm:"column:tcp_csum" json:"tcp_csum" xml:"tcp_csum"`
	Urp      int   `gorm:"column:tcp_urp" json:"tcp_urp" xml:"tcp_urp"`
}

func (TCPHeader) TableName() string {
	return "tcphdr"
}

type UDPHeader struct {
	SID      uint `gorm:"column:sid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	CID      uint `gorm:"column:cid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	SrcPort  int  `gorm:"column:udp_sport;index" json:"udp_sport" xml:"udp_sport"`
	DstPort  int  `gorm:"column:udp_dport;index" json:"udp_dport" xml:"udp_dport"`
	Len      int  `gorm:"column:udp_len" json:"udp_len" xml:"udp_len"`
	Checksum int  `gorm:"column:udp_csum" json:"udp_csum" xml:"udp_csum"`
}

func (UDPHeader) TableName() string {
	return "udphdr"
}

type ICMPHeader struct {
	SID      uint `gorm:"column:sid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	CID      uint `gorm:"column:cid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	Type     int  `gorm:"column:icmp_type" json:"icmp_type" xml:"icmp_type"`
	Code     int  `gorm:"column:icmp_code" json:"icmp_code" xml:"icmp_code"`
	Checksum int  `gorm:"column:icmp_csum" json:"icmp_csum" xml:"icmp_csum"`
	ID       int  `gorm:"column:icmp_id" json:"icmp_id" xml:"icmp_id"`
	Seq      int  `gorm:"column:icmp_seq" json:"icmp_seq" xml:"icmp_seq"`
}

func (ICMPHeader) TableName() string {
	return "icmphdr"
}

// Payload is the captured packet data, hex encoded by the sensor
type Payload struct {
	SID  uint   `gorm:"column:sid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	CID  uint   `gorm:"column:cid;primaryKey;autoIncrement:false" json:"-" xml:"-"`
	Data string `gorm:"column:data_payload;type:text" json:"data_payload" xml:"data_payload"`
}

func (Payload) TableName() string {
	return "data"
}

// Bytes decodes the hex payload; invalid hex yields nil
func (p *Payload) Bytes() []byte {
	b, err := hex.DecodeString(strings.TrimSpace(p.Data))
	if err != nil {
		return nil
	}
	return b
}

// ASCII renders printable bytes as-is and everything else as '.'
func (p *Payload) ASCII() string {
	raw := p.Bytes()
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, c := range raw {
		if c >= 32 && c < 127 {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

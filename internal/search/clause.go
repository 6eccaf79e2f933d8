package search

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Clause is one typed condition on the event table
type Clause interface {
	Apply(tx *gorm.DB) *gorm.DB
	String() string
}

// TimeRange matches Start <= timestamp < End
type TimeRange struct {
	Start, End time.Time
}

func (c TimeRange) Apply(tx *gorm.DB) *gorm.DB {
	return tx.Where("event.timestamp >= ? AND event.timestamp < ?", c.Start, c.End)
}

func (c TimeRange) String() string {
	return fmt.Sprintf("timestamp in [%s, %s)", c.Start.Format(time.RFC3339), c.End.Format(time.RFC3339))
}

type SensorEquals struct {
	SID uint
}

func (c SensorEquals) Apply(tx *gorm.DB) *gorm.DB {
	return tx.Where("event.sid = ?", c.SID)
}

func (c SensorEquals) String() string {
	return fmt.Sprintf("sid = %d", c.SID)
}

// SignatureIn matches events whose signature is in IDs. An empty set matches nothing.
type SignatureIn struct {
	IDs []uint
}

func (c SignatureIn) Apply(tx *gorm.DB) *gorm.DB {
	if len(c.IDs) == 0 {
		return tx.Where("1 = 0")
	}
	return tx.Where("event.signature IN ?", c.IDs)
}

func (c SignatureIn) String() string {
	return fmt.Sprintf("signature in %v", c.IDs)
}

type ClassificationEquals struct {
	ID uint
}

func (c ClassificationEquals) Apply(tx *gorm.DB) *gorm.DB {
	return tx.Where("event.classification_id = ?", c.ID)
}

func (c ClassificationEquals) String() string {
	return fmt.Sprintf("classification_id = %d", c.ID)
}

// IPSrcEquals compares against the integer encoding stored in iphdr
type IPSrcEquals struct {
	Addr uint32
}

func (c IPSrcEquals) Apply(tx *gorm.DB) *gorm.DB {
	return tx.Where("EXISTS (SELECT 1 FROM iphdr ip WHERE ip.sid = event.sid AND ip.cid = event.cid AND ip.ip_src = ?)", int64(c.Addr))
}

func (c IPSrcEquals) String() string {
	return fmt.Sprintf("ip_src = %d", c.Addr)
}

type IPDstEquals struct {
	Addr uint32
}

func (c IPDstEquals) Apply(tx *gorm.DB) *gorm.DB {
	return tx.Where("EXISTS (SELECT 1 FROM iphdr ip WHERE ip.sid = event.sid AND ip.cid = event.cid AND ip.ip_dst = ?)", int64(c.Addr))
}

func (c IPDstEquals) String() string {
	return fmt.Sprintf("ip_dst = %d", c.Addr)
}

type NotesCountGreater struct {
	N int
}

func (c NotesCountGreater) Apply(tx *gorm.DB) *gorm.DB {
	return tx.Where("event.notes_count > ?", c.N)
}

func (c NotesCountGreater) String() string {
	return fmt.Sprintf("notes_count > %d", c.N)
}

type UsersCountGreater struct {
	N int
}

func (c UsersCountGreater) Apply(tx *gorm.DB) *gorm.DB {
	return tx.Where("event.users_count > ?", c.N)
}

func (c UsersCountGreater) String() string {
	return fmt.Sprintf("users_count > %d", c.N)
}

// PortMatch matches TCP or UDP headers. Zero leaves that side unconstrained;
// when both are set the source and destination must hold on the same header.
type PortMatch struct {
	Src, Dst int
}

func (c PortMatch) Apply(tx *gorm.DB) *gorm.DB {
	tcp, tcpArgs := c.headerCondition("tcphdr", "tcp_sport", "tcp_dport")
	udp, udpArgs := c.headerCondition("udphdr", "udp_sport", "udp_dport")
	return tx.Where("("+tcp+" OR "+udp+")", append(tcpArgs, udpArgs...)...)
}

func (c PortMatch) headerCondition(table, srcCol, dstCol string) (string, []interface{}) {
	cond := fmt.Sprintf("EXISTS (SELECT 1 FROM %s h WHERE h.sid = event.sid AND h.cid = event.cid", table)
	var args []interface{}
	if c.Src != 0 {
		cond += fmt.Sprintf(" AND h.%s = ?", srcCol)
		args = append(args, c.Src)
	}
	if c.Dst != 0 {
		cond += fmt.Sprintf(" AND h.%s = ?", dstCol)
		args = append(args, c.Dst)
	}
	return cond + ")", args
}

func (c PortMatch) String() string {
	switch {
	case c.Dst == 0:
		return fmt.Sprintf("src_port = %d", c.Src)
	case c.Src == 0:
		return fmt.Sprintf("dst_port = %d", c.Dst)
	default:
		return fmt.Sprintf("src_port = %d and dst_port = %d", c.Src, c.Dst)
	}
}

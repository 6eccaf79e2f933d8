package search

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
)

// SignatureResolver maps a name fragment and severity to signature ids
type SignatureResolver interface {
	ResolveSignatures(ctx context.Context, name string, severity int) ([]uint, error)
}

// Predicate is an ordered list of clauses joined with AND
type Predicate struct {
	clauses []Clause
}

// Apply is usable directly as a gorm scope
func (p Predicate) Apply(tx *gorm.DB) *gorm.DB {
	for _, c := range p.clauses {
		tx = c.Apply(tx)
	}
	return tx
}

func (p Predicate) Clauses() []Clause {
	out := make([]Clause, len(p.clauses))
	copy(out, p.clauses)
	return out
}

func (p Predicate) Empty() bool {
	return len(p.clauses) == 0
}

func (p Predicate) String() string {
	parts := make([]string, len(p.clauses))
	for i, c := range p.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// Builder accumulates clauses from Params
type Builder struct {
	signatures SignatureResolver
	times      *TimeParser
	now        func() time.Time
}

func NewBuilder(signatures SignatureResolver) *Builder {
	return &Builder{
		signatures: signatures,
		times:      NewTimeParser(),
		now:        time.Now,
	}
}

// WithClock fixes the reference time for relative expressions
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build adds clauses in a fixed order: time, sensor, signature, classification,
// addresses, counters, ports. It stops at the first bad field and returns what
// was built so far together with the error, so callers can still query.
func (b *Builder) Build(ctx context.Context, p Params) (Predicate, error) {
	var pred Predicate
	add := func(c Clause) { pred.clauses = append(pred.clauses, c) }

	if !timestampUnset(p.Timestamp) {
		r, err := b.times.Range(p.Timestamp, b.now())
		if err != nil {
			return pred, fmt.Errorf("timestamp: %w", err)
		}
		add(r)
	}

	if p.SensorID != 0 {
		add(SensorEquals{SID: p.SensorID})
	}

	name := strings.TrimSpace(p.SignatureName)
	if name != "" || p.Severity != 0 {
		if b.signatures == nil {
			return pred, fmt.Errorf("signature: no resolver configured")
		}
		ids, err := b.signatures.ResolveSignatures(ctx, name, p.Severity)
		if err != nil {
			return pred, fmt.Errorf("signature: %w", err)
		}
		add(SignatureIn{IDs: ids})
	}

	if p.ClassificationID != 0 {
		add(ClassificationEquals{ID: p.ClassificationID})
	}

	if p.IPSrc != "" {
		v, err := ParseAddress(p.IPSrc)
		if err != nil {
			return pred, fmt.Errorf("ip_src: %w", err)
		}
		add(IPSrcEquals{Addr: v})
	}

	if p.IPDst != "" {
		v, err := ParseAddress(p.IPDst)
		if err != nil {
			return pred, fmt.Errorf("ip_dst: %w", err)
		}
		add(IPDstEquals{Addr: v})
	}

	if p.NotesCount != nil {
		add(NotesCountGreater{N: *p.NotesCount})
	}
	if p.UsersCount != nil {
		add(UsersCountGreater{N: *p.UsersCount})
	}

	if p.SrcPort != 0 || p.DstPort != 0 {
		add(PortMatch{Src: p.SrcPort, Dst: p.DstPort})
	}

	return pred, nil
}

// ParseAddress accepts dotted-quad IPv4 or its unsigned integer encoding
func ParseAddress(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(n), nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	v, ok := models.AddrToUint32(a)
	if !ok {
		return 0, fmt.Errorf("not an IPv4 address %q", s)
	}
	return v, nil
}

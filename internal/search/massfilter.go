package search

import (
	"net/netip"

	"github.com/eventdesk/eventdesk/internal/models"
	"gorm.io/gorm"
)

// MassFilter selects events for a filter-based mass classification. It is
// stored in the job payload and evaluated when the job runs.
type MassFilter struct {
	SensorIDs   []uint      `json:"sensor_ids,omitempty"`
	SignatureID *uint       `json:"signature_id,omitempty"`
	IPSrc       *netip.Addr `json:"ip_src,omitempty"`
	IPDst       *netip.Addr `json:"ip_dst,omitempty"`
}

// Empty reports whether no criterion is set
func (f MassFilter) Empty() bool {
	return len(f.SensorIDs) == 0 && f.SignatureID == nil && f.IPSrc == nil && f.IPDst == nil
}

// Apply is a gorm scope over the event table
func (f MassFilter) Apply(tx *gorm.DB) *gorm.DB {
	if len(f.SensorIDs) > 0 {
		tx = tx.Where("event.sid IN ?", f.SensorIDs)
	}
	if f.SignatureID != nil {
		tx = tx.Where("event.signature = ?", *f.SignatureID)
	}
	if f.IPSrc != nil {
		tx = addressClause(tx, "ip_src", *f.IPSrc)
	}
	if f.IPDst != nil {
		tx = addressClause(tx, "ip_dst", *f.IPDst)
	}
	return tx
}

// Fields renders the filter for audit logs
func (f MassFilter) Fields() map[string]interface{} {
	out := map[string]interface{}{}
	if len(f.SensorIDs) > 0 {
		out["sensor_ids"] = f.SensorIDs
	}
	if f.SignatureID != nil {
		out["signature_id"] = *f.SignatureID
	}
	if f.IPSrc != nil {
		out["ip_src"] = f.IPSrc.String()
	}
	if f.IPDst != nil {
		out["ip_dst"] = f.IPDst.String()
	}
	return out
}

func addressClause(tx *gorm.DB, column string, addr netip.Addr) *gorm.DB {
	v, ok := models.AddrToUint32(addr)
	if !ok {
		return tx.Where("1 = 0")
	}
	return tx.Where("EXISTS (SELECT 1 FROM iphdr ip WHERE ip.sid = event.sid AND ip.cid = event.cid AND ip."+column+" = ?)", int64(v))
}

// Package search turns the loosely typed filter fields of the event list into
// typed clauses and compiles them into a gorm scope.
package search

import (
	"net/url"
	"strconv"
	"strings"
)

// Params are the optional filter fields accepted by the event list. Numeric
// zero and empty strings mean "not set". NotesCount and UsersCount are
// pointers because their presence alone enables the filter.
type Params struct {
	Timestamp        string `json:"timestamp"`
	SensorID         uint   `json:"sid"`
	SignatureName    string `json:"signature_name"`
	Severity         int    `json:"severity"`
	ClassificationID uint   `json:"classification_id"`
	IPSrc            string `json:"ip_src"`
	IPDst            string `json:"ip_dst"`
	SrcPort          int    `json:"src_port"`
	DstPort          int    `json:"dst_port"`
	NotesCount       *int   `json:"notes_count,omitempty"`
	UsersCount       *int   `json:"users_count,omitempty"`
}

// Empty reports whether no field would produce a clause
func (p Params) Empty() bool {
	return timestampUnset(p.Timestamp) &&
		p.SensorID == 0 &&
		p.SignatureName == "" &&
		p.Severity == 0 &&
		p.ClassificationID == 0 &&
		p.IPSrc == "" &&
		p.IPDst == "" &&
		p.SrcPort == 0 &&
		p.DstPort == 0 &&
		p.NotesCount == nil &&
		p.UsersCount == nil
}

// ParamsFromQuery reads the filter fields from a query string. Numeric fields
// take their leading integer, so "12abc" is 12 and "abc" is 0 (unset); a
// malformed number never rejects the request.
func ParamsFromQuery(q url.Values) Params {
	p := Params{
		Timestamp:     q.Get("timestamp"),
		SignatureName: q.Get("signature_name"),
		IPSrc:         strings.TrimSpace(q.Get("ip_src")),
		IPDst:         strings.TrimSpace(q.Get("ip_dst")),
		Severity:      LeadingInt(q.Get("severity")),
		SrcPort:       LeadingInt(q.Get("src_port")),
		DstPort:       LeadingInt(q.Get("dst_port")),
	}
	if n := LeadingInt(q.Get("sid")); n > 0 {
		p.SensorID = uint(n)
	}
	if n := LeadingInt(q.Get("classification_id")); n > 0 {
		p.ClassificationID = uint(n)
	}
	if v := q.Get("notes_count"); v != "" {
		n := LeadingInt(v)
		p.NotesCount = &n
	}
	if v := q.Get("users_count"); v != "" {
		n := LeadingInt(v)
		p.UsersCount = &n
	}
	return p
}

// LeadingInt parses an optional sign and the digits that follow it, ignoring
// surrounding space and any trailing text. No digits, or overflow, give 0.
func LeadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

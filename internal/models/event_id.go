package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidEventID is returned when a "sid-cid" string cannot be parsed
var ErrInvalidEventID = errors.New("invalid event id")

// EventID is the composite (sensor id, event id) key of an event
type EventID struct {
	SID uint `json:"sid"`
	CID uint `json:"cid"`
}

// String returns the canonical "sid-cid" encoding
func (id EventID) String() string {
	return fmt.Sprintf("%d-%d", id.SID, id.CID)
}

// ParseEventID parses a single "sid-cid" value
func ParseEventID(s string) (EventID, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return EventID{}, fmt.Errorf("%w: %q", ErrInvalidEventID, s)
	}
	sid, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return EventID{}, fmt.Errorf("%w: %q", ErrInvalidEventID, s)
	}
	cid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return EventID{}, fmt.Errorf("%w: %q", ErrInvalidEventID, s)
	}
	return EventID{SID: uint(sid), CID: uint(cid)}, nil
}

// ParseEventIDList parses a comma separated list such as "1-100,1-101".
// Empty entries are ignored; duplicates are collapsed keeping first-seen order.
func ParseEventIDList(s string) ([]EventID, error) {
	var ids []EventID
	seen := make(map[EventID]bool)
	for _, raw := range strings.Split(s, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		id, err := ParseEventID(raw)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// JoinEventIDs is the inverse of ParseEventIDList
func JoinEventIDs(ids []EventID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

package events

import (
	"context"
	"strconv"
	"time"

	"github.com/eventdesk/eventdesk/internal/storage"
)

// InfluxDBEventStorage mirrors the audit trail into InfluxDB for dashboards
type InfluxDBEventStorage struct {
	client  *storage.InfluxDBClient
	timeout time.Duration
}

func NewInfluxDBEventStorage(client *storage.InfluxDBClient) *InfluxDBEventStorage {
	return &InfluxDBEventStorage{client: client, timeout: 10 * time.Second}
}

// Store never fails synchronously; write errors surface in the client's log
func (s *InfluxDBEventStorage) Store(event Event) error {
	s.client.Write(toPoint(event))
	return nil
}

func (s *InfluxDBEventStorage) Query(filters EventFilters) ([]Event, error) {
	q := storage.AuditQuery{
		Types:   make([]string, len(filters.Types)),
		Subject: filters.Subject,
		UserID:  formatUserID(filters.UserID),
		Start:   filters.StartTime,
		Stop:    filters.EndTime,
		Limit:   filters.Limit,
	}
	for i, t := range filters.Types {
		q.Types[i] = string(t)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	points, err := s.client.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]Event, len(points))
	for i, p := range points {
		out[i] = fromPoint(p)
	}
	return out, nil
}

func toPoint(e Event) storage.AuditPoint {
	return storage.AuditPoint{
		EntryID: e.ID,
		Type:    string(e.Type),
		Time:    e.Timestamp,
		Source:  e.Source,
		Subject: e.Subject,
		UserID:  formatUserID(e.UserID),
		Fields:  e.Data,
	}
}

func fromPoint(p storage.AuditPoint) Event {
	uid, _ := strconv.ParseUint(p.UserID, 10, 64)
	return Event{
		ID:        p.EntryID,
		Type:      EventType(p.Type),
		Timestamp: p.Time,
		Source:    p.Source,
		Subject:   p.Subject,
		UserID:    uint(uid),
		Data:      p.Fields,
	}
}

func formatUserID(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

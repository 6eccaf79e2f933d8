package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/pkg/logger"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Measurement holds one point per audit-trail entry
const Measurement = "eventdesk_audit"

// tag keys; everything else on a point is a field
const (
	tagEntryID = "entry_id"
	tagType    = "type"
	tagSource  = "source"
	tagSubject = "subject"
	tagUserID  = "user_id"
)

// AuditPoint is one audit entry as stored in InfluxDB. Subject is the
// "sid-cid" of the alert the action touched, when there is one.
type AuditPoint struct {
	EntryID string
	Type    string
	Time    time.Time
	Source  string
	Subject string
	UserID  string
	Fields  map[string]interface{}
}

// AuditQuery narrows a read; zero values are ignored
type AuditQuery struct {
	Types   []string
	Subject string
	UserID  string
	Start   time.Time
	Stop    time.Time
	Limit   int
}

type InfluxDBConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxDBClient mirrors the audit trail into a time-series bucket so
// analyst activity can be graphed next to alert volume.
type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	queryAPI api.QueryAPI
	bucket   string
	done     chan struct{}
}

func NewInfluxDBClient(cfg InfluxDBConfig) (*InfluxDBClient, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return nil, fmt.Errorf("InfluxDB health check failed: %s", msg)
	}

	c := &InfluxDBClient{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
		done:     make(chan struct{}),
	}
	go c.logWriteErrors()

	logger.Info("InfluxDB connection established", map[string]interface{}{
		"url":    cfg.URL,
		"org":    cfg.Org,
		"bucket": cfg.Bucket,
	})
	return c, nil
}

// logWriteErrors drains the async writer's error channel
func (c *InfluxDBClient) logWriteErrors() {
	errs := c.writeAPI.Errors()
	for {
		select {
		case err := <-errs:
			logger.Error("InfluxDB audit write failed", err, nil)
		case <-c.done:
			return
		}
	}
}

// Write queues the point on the non-blocking writer
func (c *InfluxDBClient) Write(p AuditPoint) {
	tags := map[string]string{
		tagEntryID: p.EntryID,
		tagType:    p.Type,
		tagSource:  p.Source,
	}
	if p.Subject != "" {
		tags[tagSubject] = p.Subject
	}
	if p.UserID != "" {
		tags[tagUserID] = p.UserID
	}
	c.writeAPI.WritePoint(influxdb2.NewPoint(Measurement, tags, PointFields(p.Fields), p.Time))
}

// PointFields converts audit data to line-protocol fields. Influx fields are
// scalars only, so nested values are stored as JSON strings. An empty map
// gets a count field because a point needs at least one.
func PointFields(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		switch val := v.(type) {
		case nil:
			continue
		case string, bool, int, int32, int64, uint, uint32, uint64, float32, float64:
			out[k] = val
		case time.Time:
			out[k] = val.UTC().Format(time.RFC3339Nano)
		case fmt.Stringer:
			out[k] = val.String()
		default:
			raw, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(raw)
		}
	}
	if len(out) == 0 {
		out["count"] = 1
	}
	return out
}

// Query reads entries back newest first
func (c *InfluxDBClient) Query(ctx context.Context, q AuditQuery) ([]AuditPoint, error) {
	result, err := c.queryAPI.Query(ctx, FluxQuery(c.bucket, q, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to query InfluxDB: %w", err)
	}
	defer result.Close()

	var points []AuditPoint
	for result.Next() {
		rec := result.Record()
		p := AuditPoint{
			Time:   rec.Time(),
			Fields: map[string]interface{}{},
		}
		for k, v := range rec.Values() {
			switch k {
			case tagEntryID:
				p.EntryID = stringValue(v)
			case tagType:
				p.Type = stringValue(v)
			case tagSource:
				p.Source = stringValue(v)
			case tagSubject:
				p.Subject = stringValue(v)
			case tagUserID:
				p.UserID = stringValue(v)
			case "_time", "_start", "_stop", "_measurement", "result", "table":
			default:
				p.Fields[k] = v
			}
		}
		points = append(points, p)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query parsing failed: %w", result.Err())
	}
	return points, nil
}

// FluxQuery renders q against bucket. Without a start the last 24 hours are
// read. Fields are pivoted so each entry comes back as one row.
func FluxQuery(bucket string, q AuditQuery, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", strconv.Quote(bucket))

	start := q.Start
	if start.IsZero() {
		start = now.Add(-24 * time.Hour)
	}
	fmt.Fprintf(&b, "  |> range(start: %s", start.UTC().Format(time.RFC3339))
	if !q.Stop.IsZero() {
		fmt.Fprintf(&b, ", stop: %s", q.Stop.UTC().Format(time.RFC3339))
	}
	b.WriteString(")\n")

	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", strconv.Quote(Measurement))
	if len(q.Types) > 0 {
		conds := make([]string, len(q.Types))
		for i, t := range q.Types {
			conds[i] = fmt.Sprintf("r.%s == %s", tagType, strconv.Quote(t))
		}
		fmt.Fprintf(&b, "  |> filter(fn: (r) => %s)\n", strings.Join(conds, " or "))
	}
	if q.Subject != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.%s == %s)\n", tagSubject, strconv.Quote(q.Subject))
	}
	if q.UserID != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.%s == %s)\n", tagUserID, strconv.Quote(q.UserID))
	}

	b.WriteString(`  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")` + "\n")
	b.WriteString("  |> group()\n")
	b.WriteString(`  |> sort(columns: ["_time"], desc: true)`)
	if q.Limit > 0 {
		fmt.Fprintf(&b, "\n  |> limit(n: %d)", q.Limit)
	}
	return b.String()
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

// Close flushes pending points and releases the client
func (c *InfluxDBClient) Close() {
	c.writeAPI.Flush()
	close(c.done)
	c.client.Close()
	logger.Info("InfluxDB client closed", nil)
}

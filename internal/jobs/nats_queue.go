package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const (
	StreamName    = "EVENTDESK_JOBS"
	SubjectPrefix = "jobs."
	ConsumerName  = "eventdesk-worker"
)

type NATSConfig struct {
	URL        string
	Embedded   bool
	Port       int // -1 picks a free port
	DataDir    string
	MaxDeliver int
	AckWait    time.Duration
}

// NATSQueue is a JetStream work queue: one subject per job type, one
// durable pull consumer shared by all workers.
type NATSQueue struct {
	nc         *nats.Conn
	js         nats.JetStreamContext
	ns         *server.Server
	maxDeliver int
	ackWait    time.Duration
}

func NewNATSQueue(cfg NATSConfig) (*NATSQueue, error) {
	q := &NATSQueue{
		maxDeliver: cfg.MaxDeliver,
		ackWait:    cfg.AckWait,
	}
	if q.maxDeliver <= 0 {
		q.maxDeliver = 5
	}
	if q.ackWait <= 0 {
		q.ackWait = 5 * time.Minute
	}

	url := cfg.URL
	if cfg.Embedded {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating NATS data dir: %w", err)
		}
		ns, err := server.NewServer(&server.Options{
			Host:      "127.0.0.1",
			Port:      cfg.Port,
			JetStream: true,
			StoreDir:  cfg.DataDir,
			NoLog:     true,
			NoSigs:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedded NATS server: %w", err)
		}
		ns.Start()
		if !ns.ReadyForConnections(10 * time.Second) {
			ns.Shutdown()
			return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
		}
		q.ns = ns
		url = ns.ClientURL()
		logger.Info("Embedded NATS server started", map[string]interface{}{"url": url})
	}

	nc, err := nats.Connect(url,
		nats.Name("eventdesk"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", map[string]interface{}{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected", nil)
		}),
	)
	if err != nil {
		q.shutdownServer()
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	q.nc = nc

	js, err := nc.JetStream()
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}
	q.js = js

	streamCfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ">"},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
		MaxAge:    7 * 24 * time.Hour,
	}
	if _, err := js.AddStream(streamCfg); err != nil {
		if _, updateErr := js.UpdateStream(streamCfg); updateErr != nil {
			q.Close()
			return nil, fmt.Errorf("creating/updating job stream: %w (original: %v)", updateErr, err)
		}
	}

	logger.Info("Connected to NATS JetStream job queue", map[string]interface{}{
		"url":    url,
		"stream": StreamName,
	})
	return q, nil
}

func (q *NATSQueue) Enqueue(ctx context.Context, job Job) error {
	env, err := NewEnvelope(job)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	subject := SubjectPrefix + env.Type
	if _, err := q.js.Publish(subject, data, nats.Context(ctx), nats.MsgId(env.ID)); err != nil {
		return fmt.Errorf("publishing job to %s: %w", subject, err)
	}
	monitoring.RecordJobEnqueued(env.Type)
	logger.Debug("Job enqueued", map[string]interface{}{
		"job_id":  env.ID,
		"subject": subject,
	})
	return nil
}

// Consume fetches in small batches until ctx is done. Failed jobs are
// redelivered with a growing delay and terminated after MaxDeliver attempts.
func (q *NATSQueue) Consume(ctx context.Context, handle func(ctx context.Context, env Envelope) error) error {
	sub, err := q.js.PullSubscribe(SubjectPrefix+">", ConsumerName,
		nats.BindStream(StreamName),
		nats.AckExplicit(),
		nats.MaxDeliver(q.maxDeliver),
		nats.AckWait(q.ackWait),
	)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", StreamName, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := sub.Fetch(10, nats.MaxWait(time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetching jobs: %w", err)
		}
		for _, msg := range msgs {
			q.process(ctx, msg, handle)
		}
	}
}

func (q *NATSQueue) process(ctx context.Context, msg *nats.Msg, handle func(ctx context.Context, env Envelope) error) {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		logger.Error("Dropping undecodable job", err, map[string]interface{}{"subject": msg.Subject})
		_ = msg.Term()
		return
	}
	if meta, err := msg.Metadata(); err == nil {
		env.Attempt = int(meta.NumDelivered)
	}

	// resets AckWait so a long job is not redelivered while it still runs
	ctx = WithProgress(ctx, func() { _ = msg.InProgress() })

	if err := handle(ctx, env); err != nil {
		if env.Attempt >= q.maxDeliver {
			_ = msg.Term()
			events.PublishJobFailed(env.ID, env.Type, env.Attempt, err.Error())
			monitoring.RecordJobProcessed(env.Type, "failed", 0)
			return
		}
		_ = msg.NakWithDelay(Backoff(env.Attempt))
		return
	}
	_ = msg.Ack()
}

func (q *NATSQueue) Close() {
	if q.nc != nil {
		_ = q.nc.Drain()
	}
	q.shutdownServer()
}

func (q *NATSQueue) shutdownServer() {
	if q.ns != nil {
		q.ns.Shutdown()
		q.ns.WaitForShutdown()
	}
}

// Backoff is the delay before retry number attempt+1
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt*attempt) * 5 * time.Second
	if d > 10*time.Minute {
		d = 10 * time.Minute
	}
	return d
}

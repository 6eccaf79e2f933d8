package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/internal/render"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"gorm.io/gorm"
)

var ErrNotificationTarget = errors.New("notification needs a signature and an email or webhook target")

// NotificationRequest is the user-facing shape of a subscription
type NotificationRequest struct {
	SigID      uint   `json:"sig_id" binding:"required"`
	SensorID   *uint  `json:"sensor_id"`
	IPSrc      string `json:"ip_src"`
	IPDst      string `json:"ip_dst"`
	Email      string `json:"email"`
	WebhookURL string `json:"webhook_url"`
}

// NotificationService matches new events against subscriptions and delivers alerts
type NotificationService struct {
	notifications *repository.NotificationRepository
	events        *repository.EventRepository
	users         *repository.UserRepository
	sender        EmailSender
	webhooks      *WebhookService
	queue         jobs.Queue
	now           func() time.Time
}

func NewNotificationService(db *gorm.DB, sender EmailSender, webhooks *WebhookService, queue jobs.Queue) *NotificationService {
	return &NotificationService{
		notifications: repository.NewNotificationRepository(db),
		events:        repository.NewEventRepository(db),
		users:         repository.NewUserRepository(db),
		sender:        sender,
		webhooks:      webhooks,
		queue:         queue,
		now:           time.Now,
	}
}

// Create stores a subscription for the user
func (s *NotificationService) Create(ctx context.Context, userID uint, req NotificationRequest) (*models.Notification, error) {
	if req.SigID == 0 || (req.Email == "" && req.WebhookURL == "") {
		return nil, ErrNotificationTarget
	}
	n := &models.Notification{
		UserID:     userID,
		SigID:      req.SigID,
		SensorID:   req.SensorID,
		Email:      req.Email,
		WebhookURL: req.WebhookURL,
		Enabled:    true,
	}
	for _, f := range []struct {
		raw string
		dst **int64
	}{{req.IPSrc, &n.IPSrc}, {req.IPDst, &n.IPDst}} {
		if f.raw == "" {
			continue
		}
		v, err := models.ParseIPv4(f.raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, f.raw)
		}
		iv := int64(v)
		*f.dst = &iv
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	return s.notifications.ForUser(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID uint) error {
	return s.notifications.Delete(ctx, id, userID)
}

// Match enqueues one AlertNotification per enabled subscription the event
// satisfies. The event's IP header must be loaded.
func (s *NotificationService) Match(ctx context.Context, event *models.Event) (int, error) {
	subs, err := s.notifications.Enabled(ctx)
	if err != nil {
		return 0, err
	}
	queued := 0
	for i := range subs {
		if !subs[i].Matches(event) {
			continue
		}
		job := jobs.AlertNotification{EventID: event.ID(), NotificationID: subs[i].ID}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return queued, fmt.Errorf("enqueueing notification %d for %s: %w", subs[i].ID, event.ID(), err)
		}
		queued++
	}
	return queued, nil
}

// Deliver sends one matched alert by email and/or webhook
func (s *NotificationService) Deliver(ctx context.Context, job jobs.AlertNotification) error {
	n, err := s.notifications.FindByID(ctx, job.NotificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return nil
		}
		return err
	}
	event, err := s.events.FindByID(ctx, job.EventID)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return nil
		}
		return err
	}

	to := n.Email
	if to == "" && n.WebhookURL == "" {
		user, err := s.users.FindByID(ctx, n.UserID)
		if err != nil {
			return err
		}
		to = user.Email
	}

	if to != "" {
		var body bytes.Buffer
		if err := render.Text(&body, render.Report{Event: event}); err != nil {
			return err
		}
		msg := Message{
			To:      []string{to},
			Subject: fmt.Sprintf("[eventdesk] Alert: %s", eventTitle(event)),
			Body:    body.String(),
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			return err
		}
		monitoring.NotificationsSentTotal.WithLabelValues("email").Inc()
	}
	if n.WebhookURL != "" {
		if err := s.webhooks.Send(ctx, n.WebhookURL, NewWebhookPayload(event, n.ID)); err != nil {
			return err
		}
		monitoring.NotificationsSentTotal.WithLabelValues("webhook").Inc()
	}

	if err := s.notifications.MarkSent(ctx, n.ID, s.now().UTC()); err != nil {
		return err
	}
	events.PublishNotificationSent(event.ID(), n.ID, n.UserID)
	return nil
}

// NotificationScanner walks forward through newly imported events and
// matches each one exactly once per process lifetime.
type NotificationScanner struct {
	notifications *NotificationService
	events        *repository.EventRepository
	interval      time.Duration
	batchSize     int
	watermark     time.Time
}

func NewNotificationScanner(db *gorm.DB, notifications *NotificationService, interval time.Duration) *NotificationScanner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &NotificationScanner{
		notifications: notifications,
		events:        repository.NewEventRepository(db),
		interval:      interval,
		batchSize:     500,
	}
}

// Run starts from the newest existing event and scans until ctx ends
func (s *NotificationScanner) Run(ctx context.Context) error {
	if s.watermark.IsZero() {
		last, err := s.events.LastTimestamp(ctx)
		if err != nil {
			return err
		}
		s.watermark = last
	}
	logger.Info("Notification scanner started", map[string]interface{}{
		"interval":  s.interval.String(),
		"watermark": s.watermark,
	})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Scan(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Notification scan failed", err, nil)
			}
		}
	}
}

// Scan processes events newer than the watermark and advances it
func (s *NotificationScanner) Scan(ctx context.Context) (int, error) {
	queued := 0
	for {
		batch, err := s.events.NewerThan(ctx, s.watermark, s.batchSize)
		if err != nil {
			return queued, err
		}
		for i := range batch {
			n, err := s.notifications.Match(ctx, &batch[i])
			queued += n
			if err != nil {
				return queued, err
			}
			s.watermark = batch[i].Timestamp
		}
		if len(batch) < s.batchSize {
			return queued, nil
		}
	}
}

// SetWatermark positions the scanner; events at or before t are ignored
func (s *NotificationScanner) SetWatermark(t time.Time) {
	s.watermark = t
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"time"

	"github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/render"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/pkg/config"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"github.com/wneessen/go-mail"
	"gorm.io/gorm"
)

// ErrInvalidEmail rejects a malformed recipient before a job is queued
var ErrInvalidEmail = errors.New("invalid email address")

// Attachment is an in-memory file sent with a message
type Attachment struct {
	Name string
	Data []byte
}

// Message is a plain-text mail with optional attachments
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// EmailSender defines the interface for sending emails
type EmailSender interface {
	Send(ctx context.Context, msg Message) error
}

// NewEmailSender picks SMTP when a host is configured and logging otherwise
func NewEmailSender(cfg *config.Config) EmailSender {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, mail will only be logged", nil)
		return &LogSender{}
	}
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}
}

// SMTPSender delivers through an SMTP relay
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", s.from, err)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	for _, a := range msg.Attachments {
		if err := m.AttachReader(a.Name, bytes.NewReader(a.Data)); err != nil {
			return fmt.Errorf("attaching %s: %w", a.Name, err)
		}
	}

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}
	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending mail to %v: %w", msg.To, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = a.Name
	}
	logger.Info("Mail not sent (no SMTP configured)", map[string]interface{}{
		"to":          msg.To,
		"subject":     msg.Subject,
		"body":        msg.Body,
		"attachments": names,
	})
	return nil
}

// MailerService renders event reports and hands them to the sender
type MailerService struct {
	sender   EmailSender
	events   *repository.EventRepository
	notes    *repository.NoteRepository
	settings *SettingsService
	queue    jobs.Queue
}

// NewMailerService wires the sender used by workers; queue may be nil in
// processes that only deliver.
func NewMailerService(db *gorm.DB, sender EmailSender, settings *SettingsService, queue jobs.Queue) *MailerService {
	return &MailerService{
		sender:   sender,
		events:   repository.NewEventRepository(db),
		notes:    repository.NewNoteRepository(db),
		settings: settings,
		queue:    queue,
	}
}

// SendEventReport mails a text report of the event with a PDF copy attached
func (s *MailerService) SendEventReport(ctx context.Context, id models.EventID, to string) error {
	report, err := s.report(ctx, id)
	if err != nil {
		return err
	}

	var body, pdf bytes.Buffer
	if err := render.Text(&body, report); err != nil {
		return err
	}
	if err := render.PDF(&pdf, report); err != nil {
		return err
	}

	msg := Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[eventdesk] Event %s: %s", id, eventTitle(report.Event)),
		Body:    body.String(),
		Attachments: []Attachment{{
			Name: fmt.Sprintf("event-%s.pdf", id),
			Data: pdf.Bytes(),
		}},
	}
	return s.sender.Send(ctx, msg)
}

// HandleJob is the worker entry point for jobs.EventMailer
func (s *MailerService) HandleJob(ctx context.Context, job jobs.EventMailer) error {
	err := s.SendEventReport(ctx, job.EventID, job.Email)
	if errors.Is(err, models.ErrEventNotFound) {
		logger.Warn("Event vanished before it could be mailed", map[string]interface{}{
			"event_id": job.EventID.String(),
			"to":       job.Email,
		})
		return nil
	}
	return err
}

// Enqueue schedules a report mail for the worker
func (s *MailerService) Enqueue(ctx context.Context, id models.EventID, to string, userID uint) error {
	if _, err := s.events.FindBare(ctx, id); err != nil {
		return err
	}
	addr, err := netmail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, to)
	}
	job := jobs.EventMailer{EventID: id, Email: addr.Address, UserID: userID}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueueing mail for event %s: %w", id, err)
	}
	return nil
}

func (s *MailerService) report(ctx context.Context, id models.EventID) (render.Report, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return render.Report{}, err
	}
	notes, err := s.notes.ForEvent(ctx, id)
	if err != nil {
		return render.Report{}, err
	}
	r := render.Report{Event: event, Notes: notes, Generated: time.Now().UTC()}
	if event.Signature != nil && s.settings != nil {
		r.SignatureURL = s.settings.SignatureURL(ctx, event.Signature)
	}
	return r, nil
}

func eventTitle(e *models.Event) string {
	if e.Signature == nil {
		return "unknown signature"
	}
	return Truncate(e.Signature.Name, FeedMessageLength)
}

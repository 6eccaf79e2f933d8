// Package app wires configuration, storage and services for the binaries.
package app

import (
	"fmt"
	"strings"

	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/eventdesk/eventdesk/internal/storage"
	"github.com/eventdesk/eventdesk/pkg/config"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"gorm.io/gorm"
)

// Services is every domain service a binary may need
type Services struct {
	Auth            *service.AuthService
	Settings        *service.SettingsService
	Events          *service.EventService
	Notes           *service.NoteService
	Favorites       *service.FavoriteService
	Classifications *service.ClassificationService
	MassActions     *service.MassActionService
	Mailer          *service.MailerService
	Notifications   *service.NotificationService
	Lookups         *service.LookupService
}

func NewServices(cfg *config.Config, db *gorm.DB, queue jobs.Queue) *Services {
	settings := service.NewSettingsService(repository.NewSettingRepository(db), cfg.SettingsCacheTTL)
	sender := service.NewEmailSender(cfg)
	classifications := service.NewClassificationService(db, queue)

	return &Services{
		Auth:            service.NewAuthService(repository.NewUserRepository(db), cfg),
		Settings:        settings,
		Events:          service.NewEventService(db),
		Notes:           service.NewNoteService(db),
		Favorites:       service.NewFavoriteService(db),
		Classifications: classifications,
		MassActions:     service.NewMassActionService(db, classifications, queue),
		Mailer:          service.NewMailerService(db, sender, settings, queue),
		Notifications:   service.NewNotificationService(db, sender, service.NewWebhookService(), queue),
		Lookups:         service.NewLookupService(settings, nil),
	}
}

// RegisterJobs binds every job type to its service handler
func RegisterJobs(d *jobs.Dispatcher, s *Services) {
	d.Register(jobs.TypeClassifyEvents, jobs.Typed(s.Classifications.HandleJob))
	d.Register(jobs.TypeMassClassification, jobs.Typed(s.MassActions.HandleJob))
	d.Register(jobs.TypeEventMailer, jobs.Typed(s.Mailer.HandleJob))
	d.Register(jobs.TypeAlertNotification, jobs.Typed(s.Notifications.Deliver))
}

// Queue is the configured backend. Consumer is nil for the inline queue.
type Queue struct {
	jobs.Queue
	Consumer jobs.Consumer
	close    func()
}

func (q *Queue) Close() {
	if q.close != nil {
		q.close()
	}
}

// OpenQueue builds the backend named by JOB_QUEUE: nats, database or inline
func OpenQueue(cfg *config.Config, db *gorm.DB, dispatcher *jobs.Dispatcher) (*Queue, error) {
	switch strings.ToLower(cfg.JobQueue) {
	case "nats":
		nq, err := jobs.NewNATSQueue(jobs.NATSConfig{
			URL:        cfg.NATSURL,
			Embedded:   cfg.NATSEmbedded,
			Port:       cfg.NATSPort,
			DataDir:    cfg.NATSDataDir,
			MaxDeliver: cfg.JobMaxAttempts,
		})
		if err != nil {
			return nil, err
		}
		return &Queue{Queue: nq, Consumer: nq, close: nq.Close}, nil
	case "database", "db", "":
		dq := jobs.NewDBQueue(repository.NewJobRepository(db), cfg.JobMaxAttempts, cfg.WorkerPollInterval)
		return &Queue{Queue: dq, Consumer: dq}, nil
	case "inline":
		logger.Warn("Inline job queue runs jobs in the request path; use it for tests and development only", nil)
		return &Queue{Queue: jobs.NewInlineQueue(dispatcher)}, nil
	default:
		return nil, fmt.Errorf("unsupported job queue: %s (use 'nats', 'database' or 'inline')", cfg.JobQueue)
	}
}

// InitEventStorage points the bus at the database, mirrored to InfluxDB when
// configured. The returned func flushes and closes the InfluxDB client.
func InitEventStorage(cfg *config.Config, db *gorm.DB) func() {
	dbStorage := events.NewDatabaseEventStorage(db)
	if cfg.InfluxDBURL == "" || cfg.InfluxDBToken == "" {
		events.SetEventStorage(dbStorage)
		logger.Info("Event-Bus initialized with database storage only", nil)
		return func() {}
	}

	influxClient, err := storage.NewInfluxDBClient(storage.InfluxDBConfig{
		URL:    cfg.InfluxDBURL,
		Token:  cfg.InfluxDBToken,
		Org:    cfg.InfluxDBOrg,
		Bucket: cfg.InfluxDBBucket,
	})
	if err != nil {
		logger.Warn("Failed to initialize InfluxDB, falling back to database-only storage", map[string]interface{}{
			"error": err.Error(),
		})
		events.SetEventStorage(dbStorage)
		return func() {}
	}

	events.SetEventStorage(events.NewMultiEventStorage(dbStorage, events.NewInfluxDBEventStorage(influxClient)))
	logger.Info("Event-Bus initialized with dual storage (database + InfluxDB)", map[string]interface{}{
		"influxdb_url": cfg.InfluxDBURL,
		"org":          cfg.InfluxDBOrg,
		"bucket":       cfg.InfluxDBBucket,
	})
	return influxClient.Close
}

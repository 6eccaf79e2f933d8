package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eventdesk/eventdesk/internal/app"
	"github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/eventdesk/eventdesk/pkg/config"
	"github.com/eventdesk/eventdesk/pkg/logger"
)

func main() {
	cfg := config.Load()

	appLogger := logger.NewLogger(logger.ParseLevel(cfg.LogLevel), os.Stdout, cfg.LogJSON)
	logger.SetDefault(appLogger)

	if strings.EqualFold(cfg.JobQueue, "inline") {
		logger.Fatal("Worker needs a durable queue", nil, map[string]interface{}{"queue": cfg.JobQueue})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := repository.InitDB(cfg); err != nil {
		logger.Fatal("Failed to initialize database", err, nil)
	}
	defer repository.GetDBProvider().Close()
	db := repository.GetDB()

	closeStorage := app.InitEventStorage(cfg, db)
	defer closeStorage()

	dispatcher := jobs.NewDispatcher()
	queue, err := app.OpenQueue(cfg, db, dispatcher)
	if err != nil {
		logger.Fatal("Failed to open job queue", err, nil)
	}
	defer queue.Close()

	svc := app.NewServices(cfg, db, queue)
	app.RegisterJobs(dispatcher, svc)

	exporter := monitoring.NewPrometheusExporter(db)
	exporter.StartMetricsCollector(30 * time.Second)
	defer exporter.Stop()

	scanner := service.NewNotificationScanner(db, svc.Notifications, cfg.NotifyScanInterval)
	go func() {
		if err := scanner.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Notification scanner stopped", err, nil)
		}
	}()

	logger.Info("Worker started", map[string]interface{}{
		"queue":         cfg.JobQueue,
		"max_attempts":  cfg.JobMaxAttempts,
		"scan_interval": cfg.NotifyScanInterval.String(),
	})

	if err := jobs.NewWorker(queue.Consumer, dispatcher).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Worker stopped", err, nil)
	}
	logger.Info("Worker shut down", nil)
}

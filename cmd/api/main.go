package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventdesk/eventdesk/internal/api"
	"github.com/eventdesk/eventdesk/internal/app"
	"github.com/eventdesk/eventdesk/internal/events"
	"github.com/eventdesk/eventdesk/internal/jobs"
	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/internal/seed"
	"github.com/eventdesk/eventdesk/pkg/config"
	"github.com/eventdesk/eventdesk/pkg/logger"
)

var version = "dev"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	appLogger := logger.NewLogger(logger.ParseLevel(cfg.LogLevel), os.Stdout, cfg.LogJSON)
	logger.SetDefault(appLogger)

	logger.Info("Starting application", map[string]interface{}{
		"app":     cfg.AppName,
		"version": version,
		"debug":   cfg.Debug,
		"port":    cfg.Port,
		"queue":   cfg.JobQueue,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	if err := repository.InitDB(cfg); err != nil {
		logger.Fatal("Failed to initialize database", err, nil)
	}
	defer repository.GetDBProvider().Close()
	db := repository.GetDB()
	logger.Info("Database initialized", nil)

	seedFile, err := seed.Load(cfg.SeedFile)
	if err != nil {
		logger.Fatal("Failed to read seed file", err, map[string]interface{}{"path": cfg.SeedFile})
	}
	if err := seed.Apply(ctx, db, seedFile); err != nil {
		logger.Fatal("Failed to apply seed data", err, nil)
	}

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

	// Live console feed
	hub := api.NewStreamHub(svc.Events, cfg.StreamInterval)
	events.SetLivePublisher(hub)
	go hub.Run(ctx)

	exporter := monitoring.NewPrometheusExporter(db)
	exporter.StartMetricsCollector(30 * time.Second)
	defer exporter.Stop()

	router := api.SetupRouter(api.Handlers{
		Auth:           api.NewAuthHandler(svc.Auth),
		Events:         api.NewEventHandler(svc.Events, svc.Notes, svc.Favorites, svc.Settings, svc.Mailer, svc.Auth),
		Classification: api.NewClassificationHandler(svc.Classifications, svc.MassActions),
		Favorites:      api.NewFavoriteHandler(svc.Favorites),
		Notes:          api.NewNoteHandler(svc.Notes),
		Lookup:         api.NewLookupHandler(svc.Lookups),
		Notifications:  api.NewNotificationHandler(svc.Notifications),
		Settings:       api.NewSettingsHandler(svc.Settings),
		Audit:          api.NewAuditHandler(events.GetEventBus()),
		Health:         api.NewHealthHandler(repository.GetDBProvider(), version),
		Stream:         hub,
	}, svc.Auth, cfg)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", map[string]interface{}{
			"address":      addr,
			"api_endpoint": fmt.Sprintf("http://localhost%s/api", addr),
			"health_check": fmt.Sprintf("http://localhost%s/health", addr),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err, nil)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down gracefully...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err, nil)
	}
	logger.Info("Shutdown complete", nil)
}

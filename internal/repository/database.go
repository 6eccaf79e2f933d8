package repository

import (
	"fmt"
	"net/url"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/pkg/config"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	DB         *gorm.DB
	dbProvider DatabaseProvider
)

// AllModels lists every table the console owns or reads
func AllModels() []interface{} {
	return []interface{}{
		&models.Sensor{},
		&models.Signature{},
		&models.Event{},
		&models.IPHeader{},
		&models.TCPHeader{},
		&models.UDPHeader{},
		&models.ICMPHeader{},
		&models.Payload{},
		&models.Classification{},
		&models.User{},
		&models.Note{},
		&models.Favorite{},
		&models.Setting{},
		&models.Notification{},
		&models.Job{},
		&models.SystemEvent{},
	}
}

// Open connects to the configured backend without migrating
func Open(cfg *config.Config) (*gorm.DB, DatabaseProvider, error) {
	level := gormlogger.Silent
	if cfg.Debug {
		level = gormlogger.Info
	}
	gormConfig := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	switch cfg.DatabaseType {
	case "postgres", "postgresql":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for PostgreSQL")
		}
		logger.Info("Connecting to PostgreSQL", map[string]interface{}{
			"dsn": RedactDSN(cfg.DatabaseURL),
		})
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), gormConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return db, &PostgreSQLProvider{db: db}, nil

	case "sqlite":
		logger.Info("Opening SQLite database", map[string]interface{}{
			"path": cfg.DatabasePath,
		})
		db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), gormConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		return db, &SQLiteProvider{db: db}, nil
	}
	return nil, nil, fmt.Errorf("unsupported database type %q (use postgres or sqlite)", cfg.DatabaseType)
}

// InitDB opens the database, migrates it and installs it as the process default
func InitDB(cfg *config.Config) error {
	db, provider, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := provider.Migrate(AllModels()...); err != nil {
		return err
	}
	DB, dbProvider = db, provider
	logger.Info("Database initialized", map[string]interface{}{
		"type": cfg.DatabaseType,
	})
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

func GetDBProvider() DatabaseProvider {
	return dbProvider
}

// RedactDSN hides the password of a URL-style DSN. Anything that does not
// parse as a URL with credentials is hidden entirely.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil || u.Host == "" {
		return "****"
	}
	return u.Redacted()
}

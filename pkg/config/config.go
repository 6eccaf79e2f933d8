package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	Debug   bool
	Port    string

	// Logging
	LogLevel string
	LogJSON  bool

	// Database
	DatabasePath string
	DatabaseType string
	DatabaseURL  string

	// Authentication
	JWTSecret      string
	TokenLifetime  time.Duration
	DefaultPerPage int

	// Job queue: nats or database. inline runs jobs inside the request and
	// is for tests and single-process development only.
	JobQueue           string
	NATSURL            string
	NATSEmbedded       bool
	NATSPort           int
	NATSDataDir        string
	WorkerPollInterval time.Duration
	JobMaxAttempts     int

	// Mail
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	// InfluxDB (audit time-series, optional)
	InfluxDBURL    string
	InfluxDBToken  string
	InfluxDBOrg    string
	InfluxDBBucket string

	// Seed data (default classifications and settings)
	SeedFile string

	SettingsCacheTTL   time.Duration
	NotifyScanInterval time.Duration
	StreamInterval     time.Duration
}

var AppConfig *Config

// Load loads configuration from environment
func Load() *Config {
	// Load .env file if exists
	_ = godotenv.Load()

	config := &Config{
		AppName:        getEnv("APP_NAME", "eventdesk"),
		Debug:          getEnvBool("DEBUG", false),
		Port:           getEnv("PORT", "8000"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		LogJSON:        getEnvBool("LOG_JSON", false),
		DatabasePath:   getEnv("DATABASE_PATH", "./eventdesk.db"),
		DatabaseType:   getEnv("DATABASE_TYPE", "postgres"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production-please-use-a-random-string"),
		TokenLifetime:  getEnvDuration("TOKEN_LIFETIME", 24*time.Hour),
		DefaultPerPage: getEnvInt("DEFAULT_PER_PAGE", 45),

		JobQueue:           getEnv("JOB_QUEUE", "database"),
		NATSURL:            getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		NATSEmbedded:       getEnvBool("NATS_EMBEDDED", false),
		NATSPort:           getEnvInt("NATS_PORT", 4222),
		NATSDataDir:        getEnv("NATS_DATA_DIR", "./data/nats"),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		JobMaxAttempts:     getEnvInt("JOB_MAX_ATTEMPTS", 5),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "eventdesk@localhost"),

		InfluxDBURL:    getEnv("INFLUXDB_URL", ""),
		InfluxDBToken:  getEnv("INFLUXDB_TOKEN", ""),
		InfluxDBOrg:    getEnv("INFLUXDB_ORG", "eventdesk"),
		InfluxDBBucket: getEnv("INFLUXDB_BUCKET", "audit"),

		SeedFile: getEnv("SEED_FILE", "./config/seed.yml"),

		SettingsCacheTTL:   getEnvDuration("SETTINGS_CACHE_TTL", 30*time.Second),
		NotifyScanInterval: getEnvDuration("NOTIFY_SCAN_INTERVAL", 30*time.Second),
		StreamInterval:     getEnvDuration("STREAM_INTERVAL", 5*time.Second),
	}

	AppConfig = config
	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("Invalid boolean for %s, using default: %v", key, defaultValue)
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("Invalid integer for %s, using default: %d", key, defaultValue)
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("Invalid duration for %s, using default: %s", key, defaultValue)
			return defaultValue
		}
		return d
	}
	return defaultValue
}

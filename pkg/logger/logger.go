package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	return [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}[l]
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel converts a LOG_LEVEL string to a LogLevel. Unknown values map to INFO.
func ParseLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Logger is a structured logger backed by zerolog
type Logger struct {
	zl zerolog.Logger
}

var defaultLogger *Logger

func init() {
	defaultLogger = NewLogger(INFO, os.Stdout, false)
}

// NewLogger creates a new logger instance. structured selects JSON output,
// otherwise a human readable console format is used.
func NewLogger(level LogLevel, writer io.Writer, structured bool) *Logger {
	if !structured {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "2006-01-02T15:04:05Z07:00", NoColor: true}
	}
	zl := zerolog.New(writer).Level(level.zerolog()).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// SetDefault sets the default logger
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Default returns the process-wide logger
func Default() *Logger {
	return defaultLogger
}

// Log logs a message with the given level and fields
func (l *Logger) Log(level LogLevel, message string, fields map[string]interface{}) {
	l.LogError(level, message, nil, fields)
}

// LogError logs an error message
func (l *Logger) LogError(level LogLevel, message string, err error, fields map[string]interface{}) {
	var ev *zerolog.Event
	switch level {
	case DEBUG:
		ev = l.zl.Debug()
	case WARN:
		ev = l.zl.Warn()
	case ERROR:
		ev = l.zl.Error()
	case FATAL:
		// WithLevel avoids zerolog's own os.Exit so Fatal below controls shutdown.
		ev = l.zl.WithLevel(zerolog.FatalLevel)
	default:
		ev = l.zl.Info()
	}
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(message)
}

// Convenience methods for default logger

func Debug(message string, fields map[string]interface{}) {
	defaultLogger.Log(DEBUG, message, fields)
}

func Info(message string, fields map[string]interface{}) {
	defaultLogger.Log(INFO, message, fields)
}

func Warn(message string, fields map[string]interface{}) {
	defaultLogger.Log(WARN, message, fields)
}

func Error(message string, err error, fields map[string]interface{}) {
	defaultLogger.LogError(ERROR, message, err, fields)
}

func Fatal(message string, err error, fields map[string]interface{}) {
	defaultLogger.LogError(FATAL, message, err, fields)
	os.Exit(1)
}

// FieldLogger carries a fixed set of fields, e.g. a job id, into every entry
type FieldLogger struct {
	logger *Logger
	fields map[string]interface{}
}

func WithFields(fields map[string]interface{}) *FieldLogger {
	return &FieldLogger{
		logger: defaultLogger,
		fields: fields,
	}
}

// With returns a copy with extra fields merged in
func (f *FieldLogger) With(fields map[string]interface{}) *FieldLogger {
	merged := make(map[string]interface{}, len(f.fields)+len(fields))
	for k, v := range f.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &FieldLogger{logger: f.logger, fields: merged}
}

func (f *FieldLogger) Debug(message string) {
	f.logger.Log(DEBUG, message, f.fields)
}

func (f *FieldLogger) Info(message string) {
	f.logger.Log(INFO, message, f.fields)
}

func (f *FieldLogger) Warn(message string) {
	f.logger.Log(WARN, message, f.fields)
}

func (f *FieldLogger) Error(message string, err error) {
	f.logger.LogError(ERROR, message, err, f.fields)
}

func (f *FieldLogger) Fatal(message string, err error) {
	f.logger.LogError(FATAL, message, err, f.fields)
	os.Exit(1)
}

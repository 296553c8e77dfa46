// Package zaplogger contains the application wide structured logger
package zaplogger

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const timeLayout = "2006-01-02T15:04:05.999-0700"

var (
	log       *zap.Logger
	zapConfig zap.Config
	level     = zap.NewAtomicLevelAt(zap.DebugLevel)
)

// Fields type, used to pass to `WithFields`.
type Fields map[string]interface{}

// LogEntry is a log line persisted in the database
type LogEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	Level     string    `gorm:"index"`
	Caller    string
	Message   string
	Fields    string // JSON object of the extra fields
}

// TableName specifies the table name for LogEntry
func (LogEntry) TableName() string {
	return "_app_logs"
}

// DbWriter implements zapcore.WriteSyncer by inserting each JSON line through gorm
type DbWriter struct {
	db *gorm.DB
}

var reservedKeys = map[string]bool{"level": true, "timestamp": true, "caller": true, "message": true}

func (w *DbWriter) Write(p []byte) (int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(p, &raw); err != nil {
		return 0, err
	}

	entry := LogEntry{
		Level:   rawString(raw["level"]),
		Caller:  rawString(raw["caller"]),
		Message: rawString(raw["message"]),
	}

	ts, err := time.Parse(timeLayout, rawString(raw["timestamp"]))
	if err != nil {
		return 0, err
	}
	entry.Timestamp = ts

	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !reservedKeys[k] {
			extra[k] = v
		}
	}
	fieldsJSON, err := json.Marshal(extra)
	if err != nil {
		return 0, err
	}
	entry.Fields = string(fieldsJSON)

	if err := w.db.Create(&entry).Error; err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *DbWriter) Sync() error {
	return nil
}

func rawString(m json.RawMessage) string {
	var s string
	if len(m) == 0 {
		return ""
	}
	if err := json.Unmarshal(m, &s); err != nil {
		return string(m)
	}
	return s
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(timeLayout))
}

func init() {
	zapConfig = zap.Config{
		Encoding:         "console",
		Level:            level,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "message",
			LevelKey:     "level",
			TimeKey:      "timestamp",
			CallerKey:    "caller",
			EncodeLevel:  zapcore.CapitalLevelEncoder,
			EncodeTime:   customTimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}

	var err error
	log, err = zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
}

// InitLogger initializes the logger with both console and database output
func InitLogger(db *gorm.DB) error {
	if err := db.AutoMigrate(&LogEntry{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %v", err)
	}

	dbWriter := &DbWriter{db: db}

	consoleEncoder := zapcore.NewConsoleEncoder(zapConfig.EncoderConfig)
	dbEncoder := zapcore.NewJSONEncoder(zapConfig.EncoderConfig)

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(dbEncoder, zapcore.AddSync(dbWriter), level),
	)

	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

// ReplaceLogger swaps the package logger and returns a func restoring the previous one.
// Tests use it with zaptest/observer.
func ReplaceLogger(l *zap.Logger) func() {
	prev := log
	log = l.WithOptions(zap.AddCallerSkip(1))
	return func() { log = prev }
}

// SetLogLevel sets the logging level
func SetLogLevel(name string) {
	var l zapcore.Level
	switch name {
	case "debug":
		l = zapcore.DebugLevel
	case "info":
		l = zapcore.InfoLevel
	case "warn":
		l = zapcore.WarnLevel
	case "error":
		l = zapcore.ErrorLevel
	default:
		l = zapcore.InfoLevel
	}
	level.SetLevel(l)
}

// Info logs an info message
func Info(msg string, fields ...Fields) {
	log.Info(msg, toZapFields(fields)...)
}

// Debug logs a debug message
func Debug(msg string, fields ...Fields) {
	log.Debug(msg, toZapFields(fields)...)
}

// Warn logs a warning message
func Warn(msg string, fields ...Fields) {
	log.Warn(msg, toZapFields(fields)...)
}

// Error logs an error message
func Error(msg string, fields ...Fields) {
	log.Error(msg, toZapFields(fields)...)
}

// Fatal logs a fatal message and exits the program
func Fatal(msg string, fields ...Fields) {
	log.Fatal(msg, toZapFields(fields)...)
}

// TimeTrack logs the time taken since start
func TimeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	Debug(name+" took "+elapsed.String(), Fields{"duration": elapsed})
}

func toZapFields(fields []Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zapFields := make([]zap.Field, 0, len(fields[0]))
	for k, v := range fields[0] {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return zapFields
}

// Sync flushes any buffered log entries
func Sync() error {
	return log.Sync()
}

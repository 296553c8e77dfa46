// Package logger records security audit events in the database
package logger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditTableName is the table audit events are written to
var AuditTableName = "_audit_logs"

// LogLevel represents the severity of an audit event
type LogLevel string

const (
	INFO LogLevel = "INFO"
	WARN LogLevel = "WARN"
)

// AuditEvent is one row of the audit trail
type AuditEvent struct {
	ID        uint32    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	Component string    `gorm:"index"`
	Level     LogLevel  `gorm:"index"`
	Event     string    `gorm:"index"`
	AccountID string    `gorm:"index"`
	Fields    datatypes.JSON
}

// TableName overrides the table name used by AuditEvent
func (AuditEvent) TableName() string {
	return AuditTableName
}

// Logger writes audit events for one component.
// A nil *Logger is valid and discards everything.
type Logger struct {
	db        *gorm.DB
	component string
	now       func() time.Time
}

// New creates a new Logger instance and migrates the audit table
func New(db *gorm.DB, component string) (*Logger, error) {
	if err := db.AutoMigrate(&AuditEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate AuditEvent for table %s: %v", AuditTableName, err)
	}
	return &Logger{db: db, component: component, now: time.Now}, nil
}

func (l *Logger) record(level LogLevel, event, accountID string, fields map[string]interface{}) error {
	var fieldsJSON datatypes.JSON
	if len(fields) > 0 {
		b, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %v", err)
		}
		fieldsJSON = datatypes.JSON(b)
	}

	entry := AuditEvent{
		Timestamp: l.now(),
		Component: l.component,
		Level:     level,
		Event:     event,
		AccountID: accountID,
		Fields:    fieldsJSON,
	}
	if err := l.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to insert audit event: %v", err)
	}
	return nil
}

// Info records a routine event such as a login or logout
func (l *Logger) Info(event, accountID string, fields map[string]interface{}) {
	if l == nil {
		return
	}
	if err := l.record(INFO, event, accountID, fields); err != nil {
		zaplogger.Error("Failed to record audit event", zaplogger.Fields{"event": event, "error": err})
	}
}

// Warn records a rejected or suspicious event
func (l *Logger) Warn(event, accountID string, fields map[string]interface{}) {
	if l == nil {
		return
	}
	if err := l.record(WARN, event, accountID, fields); err != nil {
		zaplogger.Error("Failed to record audit event", zaplogger.Fields{"event": event, "error": err})
	}
}

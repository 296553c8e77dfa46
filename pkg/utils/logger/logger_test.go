package logger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestLogger_RecordsEvents(t *testing.T) {
	db := newTestDB(t)
	l, err := New(db, "auth")
	require.NoError(t, err)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Warn("authentication_rejected", "", map[string]interface{}{"reason": "expired_token"})
	l.Info("login", "acc-1", nil)

	var events []AuditEvent
	require.NoError(t, db.Order("id").Find(&events).Error)
	require.Len(t, events, 2)

	assert.Equal(t, WARN, events[0].Level)
	assert.Equal(t, "auth", events[0].Component)
	assert.Equal(t, "authentication_rejected", events[0].Event)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(events[0].Fields, &fields))
	assert.Equal(t, "expired_token", fields["reason"])

	assert.Equal(t, INFO, events[1].Level)
	assert.Equal(t, "acc-1", events[1].AccountID)
	assert.True(t, events[1].Timestamp.Equal(fixed))
}

func TestLogger_NilIsNoop(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("login", "acc-1", nil)
		l.Warn("authentication_rejected", "", nil)
	})
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chnk8802/task-manager/internal/models"
	"github.com/chnk8802/task-manager/internal/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, repository.AutoMigrate(db))
	return db
}

type testEnv struct {
	db       *gorm.DB
	accounts *AccountService
	sessions *SessionService
	avatars  *AvatarService
	tasks    *TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	accounts := NewAccountService(db, bcrypt.MinCost)
	return &testEnv{
		db:       db,
		accounts: accounts,
		sessions: NewSessionService(accounts, testSecret, 6*time.Hour),
		avatars:  NewAvatarService(accounts, 1000000, 250),
		tasks:    NewTaskService(db),
	}
}

func (env *testEnv) signup(t *testing.T, email string) *models.AccountModel {
	t.Helper()
	age := 27
	account, err := env.accounts.Create(context.Background(), SignupInput{
		Name:     "Ann",
		Email:    email,
		Password: "hunter22",
		Age:      &age,
	})
	require.NoError(t, err)
	return account
}

func reasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

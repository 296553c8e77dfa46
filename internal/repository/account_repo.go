package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/chnk8802/task-manager/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAccountNotFound is returned when no account matches the lookup
var ErrAccountNotFound = errors.New("account not found")

// ErrEmailTaken is returned when a write would duplicate an email
var ErrEmailTaken = errors.New("email already registered")

// ErrNoChange is returned by a Mutate callback to end the transaction without writing
var ErrNoChange = errors.New("no change")

// AccountRepository persists accounts and their embedded session lists
type AccountRepository struct {
	DB *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.AccountModel) error {
	err := r.DB.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %v", err)
	}
	return nil
}

// FindByID returns the account with the given id
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.AccountModel, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail returns the account registered with email
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.AccountModel, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg string) (*models.AccountModel, error) {
	var account models.AccountModel
	err := r.DB.WithContext(ctx).Where(query, arg).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %v", err)
	}
	return &account, nil
}

// EmailTaken reports whether an account other than excludeID uses email
func (r *AccountRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&models.AccountModel{}).Where("email = ?", email)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %v", err)
	}
	return count > 0, nil
}

// Mutate loads the account under a row lock, applies fn and saves the result,
// all in one transaction. Concurrent mutations of the same account are serialized.
// If fn returns an error nothing is written and that error is returned as is;
// fn returns ErrNoChange when the account already has the wanted state.
func (r *AccountRepository) Mutate(ctx context.Context, id string, fn func(*models.AccountModel) error) (*models.AccountModel, error) {
	var account models.AccountModel
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock account: %v", err)
		}

		if err := fn(&account); err != nil {
			return err
		}

		err = tx.Save(&account).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("failed to save account: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Delete removes the account and all of its tasks in one transaction
// and returns the removed account.
func (r *AccountRepository) Delete(ctx context.Context, id string) (*models.AccountModel, error) {
	var account models.AccountModel
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock account: %v", err)
		}
		if err := tx.Where("owner_id = ?", id).Delete(&models.TaskModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete tasks: %v", err)
		}
		if err := tx.Delete(&account).Error; err != nil {
			return fmt.Errorf("failed to delete account: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SessionHolder is the id and session list of one account
type SessionHolder struct {
	ID     string
	Tokens []string
}

// ForEachSessionHolder walks all accounts in batches and calls fn with each
// account's id and token list. Accounts without sessions are skipped.
func (r *AccountRepository) ForEachSessionHolder(ctx context.Context, batchSize int, fn func(SessionHolder) error) error {
	var batch []models.AccountModel
	var fnErr error
	result := r.DB.WithContext(ctx).
		Select("id", "tokens").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			for _, a := range batch {
				if len(a.Tokens) == 0 {
					continue
				}
				if err := fn(SessionHolder{ID: a.ID, Tokens: a.Tokens}); err != nil {
					fnErr = err
					return err
				}
			}
			return nil
		})
	if fnErr != nil {
		return fnErr
	}
	if result.Error != nil {
		return fmt.Errorf("failed to scan sessions: %v", result.Error)
	}
	return nil
}

// Package service contains the service layer for the Task Manager API
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/chnk8802/task-manager/internal/models"
	"github.com/chnk8802/task-manager/internal/repository"
	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 6
	// bcrypt only reads the first 72 bytes of its input
	maxPasswordBytes = 72
)

// SignupInput is the body of a signup request
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age"`
}

// AccountPatch holds the fields a user may change on their account.
// A nil field is left untouched.
type AccountPatch struct {
	Name     *string
	Email    *string
	Password *string
	Age      *int
}

// AccountService stores credentials and profiles
type AccountService struct {
	repo       *repository.AccountRepository
	bcryptCost int
	dummyHash  []byte
}

// NewAccountService creates a new AccountService
func NewAccountService(db *gorm.DB, bcryptCost int) *AccountService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	// compared against when the email is unknown so both login failures cost one bcrypt run
	dummyHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		panic(fmt.Sprintf("failed to generate dummy hash: %v", err))
	}
	return &AccountService{
		repo:       repository.NewAccountRepository(db),
		bcryptCost: bcryptCost,
		dummyHash:  dummyHash,
	}
}

// Repository returns the underlying account repository
func (s *AccountService) Repository() *repository.AccountRepository {
	return s.repo
}

// Create validates the signup input, hashes the password and stores the account
func (s *AccountService) Create(ctx context.Context, in SignupInput) (*models.AccountModel, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validateAge(in.Age); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, internalError(err)
	}
	if taken {
		return nil, validationError(ErrDuplicateIdentity, "Email is already registered")
	}

	account := &models.AccountModel{
		ID:       uuid.NewString(),
		Name:     name,
		Email:    email,
		Age:      in.Age,
		Password: hash,
		Tokens:   []string{},
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, validationError(ErrDuplicateIdentity, "Email is already registered")
		}
		return nil, internalError(err)
	}

	zaplogger.Info("Account created", zaplogger.Fields{"account_id": account.ID})
	return account, nil
}

// FindByEmail returns the account for email, or nil when there is none
func (s *AccountService) FindByEmail(ctx context.Context, email string) (*models.AccountModel, error) {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError(err)
	}
	return account, nil
}

// FindByID returns the account with id, or nil when there is none
func (s *AccountService) FindByID(ctx context.Context, id string) (*models.AccountModel, error) {
	account, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError(err)
	}
	return account, nil
}

// VerifyCredentials returns the account when password matches.
// Unknown email and wrong password fail with the same error.
func (s *AccountService) VerifyCredentials(ctx context.Context, email, password string) (*models.AccountModel, error) {
	invalid := &Error{Kind: KindInvalidCredentials, Message: "Unable to login", Err: ErrInvalidCredentials}
	plain := []byte(strings.TrimSpace(password))

	account, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, plain)
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), plain); err != nil {
		return nil, invalid
	}
	return account, nil
}

// ParsePatch decodes an update body. Keys outside name, email, password and age
// are rejected.
func ParsePatch(body map[string]json.RawMessage) (AccountPatch, error) {
	var patch AccountPatch
	if len(body) == 0 {
		return patch, validationError(ErrInvalidUpdateField, "Invalid updates!")
	}

	for key, raw := range body {
		var err error
		switch key {
		case "name":
			patch.Name = new(string)
			err = decodeStrict(raw, patch.Name)
		case "email":
			patch.Email = new(string)
			err = decodeStrict(raw, patch.Email)
		case "password":
			patch.Password = new(string)
			err = decodeStrict(raw, patch.Password)
		case "age":
			patch.Age = new(int)
			err = decodeStrict(raw, patch.Age)
		default:
			return AccountPatch{}, validationError(ErrInvalidUpdateField, "Invalid updates!")
		}
		if err != nil {
			return AccountPatch{}, validationError(ErrInvalidProfile, fmt.Sprintf("Invalid value for %s", key))
		}
	}
	return patch, nil
}

func decodeStrict(raw json.RawMessage, dst interface{}) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return errors.New("null value")
	}
	return json.Unmarshal(raw, dst)
}

// Update applies patch to the account atomically
func (s *AccountService) Update(ctx context.Context, accountID string, patch AccountPatch) (*models.AccountModel, error) {
	var name, email, hash string
	var err error

	if patch.Name != nil {
		if name, err = normalizeName(*patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Email != nil {
		if email, err = normalizeEmail(*patch.Email); err != nil {
			return nil, err
		}
		taken, err := s.repo.EmailTaken(ctx, email, accountID)
		if err != nil {
			return nil, internalError(err)
		}
		if taken {
			return nil, validationError(ErrDuplicateIdentity, "Email is already registered")
		}
	}
	if err := validateAge(patch.Age); err != nil {
		return nil, err
	}
	if patch.Password != nil {
		if hash, err = s.hashPassword(*patch.Password); err != nil {
			return nil, err
		}
	}

	account, err := s.repo.Mutate(ctx, accountID, func(a *models.AccountModel) error {
		if patch.Name != nil {
			a.Name = name
		}
		if patch.Email != nil {
			a.Email = email
		}
		if patch.Age != nil {
			age := *patch.Age
			a.Age = &age
		}
		if patch.Password != nil {
			a.Password = hash
		}
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		return nil, notFound("Account not found")
	case errors.Is(err, repository.ErrEmailTaken):
		return nil, validationError(ErrDuplicateIdentity, "Email is already registered")
	case err != nil:
		return nil, internalError(err)
	}
	return account, nil
}

// Delete removes the account together with its tasks and sessions
func (s *AccountService) Delete(ctx context.Context, accountID string) (*models.AccountModel, error) {
	account, err := s.repo.Delete(ctx, accountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, notFound("Account not found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	zaplogger.Info("Account deleted", zaplogger.Fields{"account_id": accountID})
	return account, nil
}

func (s *AccountService) hashPassword(password string) (string, error) {
	plain := strings.TrimSpace(password)
	switch {
	case len(plain) < minPasswordLength:
		return "", validationError(ErrWeakSecret, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	case len(plain) > maxPasswordBytes:
		return "", validationError(ErrWeakSecret, fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	case strings.Contains(strings.ToLower(plain), "password"):
		return "", validationError(ErrWeakSecret, `Password cannot contain "password"`)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.bcryptCost)
	if err != nil {
		return "", internalError(fmt.Errorf("failed to hash password: %v", err))
	}
	return string(hash), nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError(ErrInvalidProfile, "Name is required")
	}
	return name, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	// reject display-name forms like "Ann <ann@example.com>"
	if err != nil || addr.Address != email {
		return "", validationError(ErrInvalidProfile, "Email is invalid")
	}
	return email, nil
}

func validateAge(age *int) error {
	if age != nil && *age < 0 {
		return validationError(ErrInvalidProfile, "Age must be a positive number")
	}
	return nil
}

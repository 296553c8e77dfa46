package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chnk8802/task-manager/internal/models"
	"github.com/chnk8802/task-manager/internal/repository"
	"github.com/chnk8802/task-manager/pkg/utils/logger"
	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const pruneBatchSize = 200

// SessionClaims are the claims carried by a session token
type SessionClaims struct {
	AccountID string `json:"_id"`
	jwt.RegisteredClaims
}

// SessionService issues, verifies and revokes session tokens.
// Tokens are JWTs signed with HS256; a token is live only while it is also
// listed in its account's token list.
type SessionService struct {
	accounts *AccountService
	repo     *repository.AccountRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	audit    *logger.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(accounts *AccountService, secret []byte, ttl time.Duration) *SessionService {
	return &SessionService{
		accounts: accounts,
		repo:     accounts.Repository(),
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetAuditLogger makes the service record session events to the audit trail
func (s *SessionService) SetAuditLogger(l *logger.Logger) {
	s.audit = l
}

// TTL returns the lifetime of issued tokens
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new token for the account and appends it to the account's sessions.
// Earlier sessions stay valid.
func (s *SessionService) Issue(ctx context.Context, accountID string) (string, error) {
	token, err := s.sign(accountID)
	if err != nil {
		return "", internalError(err)
	}

	_, err = s.repo.Mutate(ctx, accountID, func(a *models.AccountModel) error {
		a.Tokens = append(a.Tokens, token)
		return nil
	})
	if errors.Is(err, repository.ErrAccountNotFound) {
		return "", notFound("Account not found")
	}
	if err != nil {
		return "", internalError(err)
	}

	s.audit.Info("session_issued", accountID, nil)
	return token, nil
}

func (s *SessionService) sign(accountID string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return token, nil
}

// Verify checks the token's signature and expiry and returns the account id
// and expiry it carries. It does not consult the database.
func (s *SessionService) Verify(token string) (string, time.Time, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrExpiredToken, err)
	// also covers a token signed with an algorithm other than HS256
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	default:
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.AccountID == "" {
		return "", time.Time{}, fmt.Errorf("%w: missing _id claim", ErrMalformedToken)
	}
	return claims.AccountID, claims.ExpiresAt.Time, nil
}

// Authenticate resolves a presented token to its account.
// Every failure is KindUnauthenticated; the Reason field says why.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.AccountModel, error) {
	if token == "" {
		return nil, s.reject(ReasonNoToken, "", nil)
	}

	accountID, _, err := s.Verify(token)
	if err != nil {
		reason := ReasonMalformedToken
		switch {
		case errors.Is(err, ErrExpiredToken):
			reason = ReasonExpiredToken
		case errors.Is(err, ErrBadSignature):
			reason = ReasonBadSignature
		}
		return nil, s.reject(reason, "", err)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, s.reject(ReasonUnknownAccount, accountID, nil)
	}
	if !account.HasToken(token) {
		return nil, s.reject(ReasonRevokedToken, accountID, nil)
	}
	return account, nil
}

func (s *SessionService) reject(reason, accountID string, cause error) error {
	s.audit.Warn("authentication_rejected", accountID, map[string]interface{}{"reason": reason})
	return unauthenticated(reason, cause)
}

// Revoke removes one session from the account. Revoking a session that is
// already gone is not an error and writes nothing.
func (s *SessionService) Revoke(ctx context.Context, accountID, token string) error {
	_, err := s.repo.Mutate(ctx, accountID, func(a *models.AccountModel) error {
		if !a.HasToken(token) {
			return repository.ErrNoChange
		}
		a.RemoveToken(token)
		return nil
	})
	if errors.Is(err, repository.ErrNoChange) || errors.Is(err, repository.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return internalError(err)
	}
	s.audit.Info("session_revoked", accountID, nil)
	return nil
}

// RevokeAll removes every session of the account
func (s *SessionService) RevokeAll(ctx context.Context, accountID string) error {
	_, err := s.repo.Mutate(ctx, accountID, func(a *models.AccountModel) error {
		if len(a.Tokens) == 0 {
			return repository.ErrNoChange
		}
		a.Tokens = []string{}
		return nil
	})
	if errors.Is(err, repository.ErrNoChange) || errors.Is(err, repository.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return internalError(err)
	}
	s.audit.Info("sessions_revoked_all", accountID, nil)
	return nil
}

// PruneExpired drops tokens that no longer verify from every account and
// returns how many accounts were changed and how many tokens were removed.
func (s *SessionService) PruneExpired(ctx context.Context) (int, int, error) {
	var stale []string
	err := s.repo.ForEachSessionHolder(ctx, pruneBatchSize, func(h repository.SessionHolder) error {
		for _, token := range h.Tokens {
			if _, _, err := s.Verify(token); err != nil {
				stale = append(stale, h.ID)
				break
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, internalError(err)
	}

	accounts, removed := 0, 0
	for _, id := range stale {
		n := 0
		_, err := s.repo.Mutate(ctx, id, func(a *models.AccountModel) error {
			live := make([]string, 0, len(a.Tokens))
			for _, token := range a.Tokens {
				if _, _, err := s.Verify(token); err == nil {
					live = append(live, token)
				}
			}
			n = len(a.Tokens) - len(live)
			if n == 0 {
				return repository.ErrNoChange
			}
			a.Tokens = live
			return nil
		})
		if errors.Is(err, repository.ErrNoChange) || errors.Is(err, repository.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return accounts, removed, internalError(err)
		}
		accounts++
		removed += n
	}

	zaplogger.Debug("Pruned expired sessions", zaplogger.Fields{"accounts": accounts, "tokens": removed})
	return accounts, removed, nil
}

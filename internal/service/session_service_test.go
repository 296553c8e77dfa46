package service

import (
	"context"
	"testing"
	"time"

	"github.com/chnk8802/task-manager/pkg/utils/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_MultipleDevices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.signup(t, "ann@example.com")

	phone, err := env.sessions.Issue(ctx, ann.ID)
	require.NoError(t, err)
	laptop, err := env.sessions.Issue(ctx, ann.ID)
	require.NoError(t, err)
	assert.NotEqual(t, phone, laptop)

	for _, token := range []string{phone, laptop} {
		got, err := env.sessions.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, ann.ID, got.ID)
	}

	require.NoError(t, env.sessions.Revoke(ctx, ann.ID, phone))
	_, err = env.sessions.Authenticate(ctx, phone)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, ReasonRevokedToken, reasonOf(err))
	_, err = env.sessions.Authenticate(ctx, laptop)
	assert.NoError(t, err)

	require.NoError(t, env.sessions.RevokeAll(ctx, ann.ID))
	_, err = env.sessions.Authenticate(ctx, laptop)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionService_TokensIssuedSameSecondDiffer(t *testing.T) {
	env := newTestEnv(t)
	fixed := time.Now()
	env.sessions.now = func() time.Time { return fixed }
	ann := env.signup(t, "ann@example.com")

	a, err := env.sessions.Issue(context.Background(), ann.ID)
	require.NoError(t, err)
	b, err := env.sessions.Issue(context.Background(), ann.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSessionService_ExpiredTokenFailsDespiteMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.signup(t, "ann@example.com")

	env.sessions.now = func() time.Time { return time.Now().Add(-7 * time.Hour) }
	token, err := env.sessions.Issue(ctx, ann.ID)
	require.NoError(t, err)
	env.sessions.now = time.Now

	stored, err := env.accounts.FindByID(ctx, ann.ID)
	require.NoError(t, err)
	require.True(t, stored.HasToken(token))

	_, _, err = env.sessions.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = env.sessions.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, ReasonExpiredToken, reasonOf(err))
}

func TestSessionService_Verify(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key interface{}, claims SessionClaims) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	valid := SessionClaims{
		AccountID: "acc-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	id, exp, err := env.sessions.Verify(sign(jwt.SigningMethodHS256, testSecret, valid))
	require.NoError(t, err)
	assert.Equal(t, "acc-1", id)
	assert.WithinDuration(t, now.Add(time.Hour), exp, time.Second)

	_, _, err = env.sessions.Verify(sign(jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), valid))
	assert.ErrorIs(t, err, ErrBadSignature)

	// right key, wrong algorithm
	_, _, err = env.sessions.Verify(sign(jwt.SigningMethodHS512, testSecret, valid))
	assert.ErrorIs(t, err, ErrBadSignature)

	_, _, err = env.sessions.Verify("definitely.not.ajwt")
	assert.ErrorIs(t, err, ErrMalformedToken)

	noID := valid
	noID.AccountID = ""
	_, _, err = env.sessions.Verify(sign(jwt.SigningMethodHS256, testSecret, noID))
	assert.ErrorIs(t, err, ErrMalformedToken)

	noExp := valid
	noExp.ExpiresAt = nil
	_, _, err = env.sessions.Verify(sign(jwt.SigningMethodHS256, testSecret, noExp))
	assert.Error(t, err)
}

func TestSessionService_AuthenticateReasons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sessions.Authenticate(ctx, "")
	assert.Equal(t, ReasonNoToken, reasonOf(err))

	_, err = env.sessions.Authenticate(ctx, "garbage")
	assert.Equal(t, ReasonMalformedToken, reasonOf(err))

	ann := env.signup(t, "ann@example.com")
	token, err := env.sessions.Issue(ctx, ann.ID)
	require.NoError(t, err)

	other := NewSessionService(env.accounts, []byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	forged, err := other.sign(ann.ID)
	require.NoError(t, err)
	_, err = env.sessions.Authenticate(ctx, forged)
	assert.Equal(t, ReasonBadSignature, reasonOf(err))

	claims := SessionClaims{
		AccountID: ann.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString(testSecret)
	require.NoError(t, err)
	_, err = env.sessions.Authenticate(ctx, otherAlg)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, ReasonBadSignature, reasonOf(err))

	_, err = env.accounts.Delete(ctx, ann.ID)
	require.NoError(t, err)
	_, err = env.sessions.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, ReasonUnknownAccount, reasonOf(err))

	// every rejection looks the same to the client
	assert.Equal(t, "Please authenticate.", err.(*Error).PublicMessage())
}

func TestSessionService_RevokeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.signup(t, "ann@example.com")

	token, err := env.sessions.Issue(ctx, ann.ID)
	require.NoError(t, err)
	keep, err := env.sessions.Issue(ctx, ann.ID)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Revoke(ctx, ann.ID, token))
	require.NoError(t, env.sessions.Revoke(ctx, ann.ID, token))

	stored, err := env.accounts.FindByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, []string(stored.Tokens))

	require.NoError(t, env.sessions.RevokeAll(ctx, ann.ID))
	require.NoError(t, env.sessions.RevokeAll(ctx, ann.ID))
	stored, err = env.accounts.FindByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Tokens)

	assert.NoError(t, env.sessions.Revoke(ctx, "missing", token))
}

func TestSessionService_IssueUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.sessions.Issue(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionService_PruneExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.signup(t, "ann@example.com")
	bob := env.signup(t, "bob@example.com")

	env.sessions.now = func() time.Time { return time.Now().Add(-7 * time.Hour) }
	_, err := env.sessions.Issue(ctx, ann.ID)
	require.NoError(t, err)
	env.sessions.now = time.Now

	live, err := env.sessions.Issue(ctx, ann.ID)
	require.NoError(t, err)
	bobLive, err := env.sessions.Issue(ctx, bob.ID)
	require.NoError(t, err)

	accounts, removed, err := env.sessions.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, removed)

	stored, err := env.accounts.FindByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{live}, []string(stored.Tokens))

	_, err = env.sessions.Authenticate(ctx, bobLive)
	assert.NoError(t, err)

	accounts, removed, err = env.sessions.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, accounts)
	assert.Zero(t, removed)
}

func TestSessionService_RepeatRevokeWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	audit, err := logger.New(env.db, "auth")
	require.NoError(t, err)
	env.sessions.SetAuditLogger(audit)

	countEvents := func(event string) int64 {
		var n int64
		require.NoError(t, env.db.Model(&logger.AuditEvent{}).Where("event = ?", event).Count(&n).Error)
		return n
	}

	ann := env.signup(t, "ann@example.com")
	token, err := env.sessions.Issue(ctx, ann.ID)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Revoke(ctx, ann.ID, token))
	first, err := env.accounts.FindByID(ctx, ann.ID)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Revoke(ctx, ann.ID, token))
	require.NoError(t, env.sessions.RevokeAll(ctx, ann.ID))
	require.NoError(t, env.sessions.Revoke(ctx, "missing", token))
	require.NoError(t, env.sessions.RevokeAll(ctx, "missing"))

	second, err := env.accounts.FindByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))
	assert.Empty(t, second.Tokens)

	assert.Equal(t, int64(1), countEvents("session_revoked"))
	assert.Zero(t, countEvents("sessions_revoked_all"))
}

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg := &Config{}
	err := cfg.loadFromEnv(envLookup(map[string]string{
		"TM_API_PG_DSN":     "host=localhost",
		"TM_API_JWT_SECRET": testSecret,
	}))
	require.NoError(t, err)

	assert.Equal(t, "3007", cfg.ServerPort)
	assert.Equal(t, 6*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 1000000, cfg.AvatarMaxBytes)
	assert.Equal(t, 250, cfg.AvatarSize)
	assert.Equal(t, "0 * * * *", cfg.SessionPruneSchedule)
	assert.Empty(t, cfg.RedisHost)
	require.NoError(t, cfg.validate())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	cfg := &Config{}
	err := cfg.loadFromEnv(envLookup(map[string]string{
		"TM_API_PG_DSN":        "host=db",
		"TM_API_JWT_SECRET":    testSecret,
		"TM_API_SESSION_TTL":   "30m",
		"TM_API_COOKIE_SECURE": "false",
		"TM_API_BCRYPT_COST":   "12",
	}))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestLoadFromEnv_MissingRequired(t *testing.T) {
	cfg := &Config{}
	err := cfg.loadFromEnv(envLookup(map[string]string{
		"TM_API_PG_DSN": "host=db",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TM_API_JWT_SECRET")
}

func TestLoadFromEnv_InvalidValue(t *testing.T) {
	cfg := &Config{}
	err := cfg.loadFromEnv(envLookup(map[string]string{
		"TM_API_PG_DSN":      "host=db",
		"TM_API_JWT_SECRET":  testSecret,
		"TM_API_SESSION_TTL": "six hours",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TM_API_SESSION_TTL")
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := &Config{JwtSecret: "short", SessionTTL: time.Hour, AvatarMaxBytes: 1, AvatarSize: 1}
	assert.Error(t, cfg.validate())
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := &Config{PostgresDsn: "postgres://user:pw@db/app", JwtSecret: testSecret, ServerPort: "3007"}
	out := cfg.String()

	assert.NotContains(t, out, testSecret)
	assert.NotContains(t, out, "user:pw")
	assert.Contains(t, out, "012*******")
	assert.True(t, strings.Contains(out, "ServerPort:  3007"))
}

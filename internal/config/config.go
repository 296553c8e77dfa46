// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
)

// MinJWTSecretLength is the shortest signing secret the server accepts
const MinJWTSecretLength = 32

// Config represents the application configuration.
// Fields without a `default` tag are required.
type Config struct {
	APIName              string        `env:"TM_API_APP_NAME" default:"Task Manager API"`
	APIVersion           string        `env:"TM_API_APP_VERSION" default:"v1.0.0"`
	ServerPort           string        `env:"TM_API_SERVER_PORT" default:"3007"`
	ServerLogLevel       string        `env:"TM_API_SERVER_LOG_LEVEL" default:"info"`
	PostgresDsn          string        `env:"TM_API_PG_DSN"`
	PostgresLogLevel     string        `env:"TM_API_PG_LOG_LEVEL" default:"warn"`
	RedisHost            string        `env:"TM_API_REDIS_HOST" default:""`
	RedisPort            string        `env:"TM_API_REDIS_PORT" default:"6379"`
	RedisPassword        string        `env:"TM_API_REDIS_PASSWORD" default:""`
	JwtSecret            string        `env:"TM_API_JWT_SECRET"`
	SessionTTL           time.Duration `env:"TM_API_SESSION_TTL" default:"6h"`
	CookieSecure         bool          `env:"TM_API_COOKIE_SECURE" default:"true"`
	BcryptCost           int           `env:"TM_API_BCRYPT_COST" default:"10"`
	AvatarMaxBytes       int           `env:"TM_API_AVATAR_MAX_BYTES" default:"1000000"`
	AvatarSize           int           `env:"TM_API_AVATAR_SIZE" default:"250"`
	SessionPruneSchedule string        `env:"TM_API_SESSION_PRUNE_SCHEDULE" default:"0 * * * *"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration, loading it on first use
func Get() (*Config, error) {
	zaplogger.Info(SingleLine)
	zaplogger.Info("Loading Configuration")

	once.Do(func() {
		instance, err = Load()
	})
	return instance, err
}

// Load reads the configuration from the environment without caching it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFromEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv(lookup func(string) (string, bool)) error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		value, ok := lookup(envTag)
		if !ok || value == "" {
			def, hasDefault := field.Tag.Lookup("default")
			if !hasDefault {
				return fmt.Errorf("env variable %s is required but not set", envTag)
			}
			value = def
		}

		if err := setField(v.Field(i), value); err != nil {
			return fmt.Errorf("invalid value for %s: %v", envTag, err)
		}
	}

	return nil
}

func setField(f reflect.Value, value string) error {
	if f.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		f.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", f.Kind())
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.JwtSecret) < MinJWTSecretLength {
		return fmt.Errorf("TM_API_JWT_SECRET must be at least %d bytes", MinJWTSecretLength)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("TM_API_SESSION_TTL must be positive")
	}
	if c.AvatarMaxBytes <= 0 || c.AvatarSize <= 0 {
		return fmt.Errorf("avatar limits must be positive")
	}
	return nil
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprint(v.Field(i).Interface())

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password", "url"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}

// Package config loads application configuration from environment variables.
// A .env file in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/iliyamo/health-tracker/internal/database"
	"github.com/iliyamo/health-tracker/internal/store"
)

// Store drivers selectable with STORE_DRIVER.
const (
	DriverPostgREST = "postgrest"
	DriverMySQL     = "mysql"
	DriverMemory    = "memory"
)

// Config holds all runtime configuration values.
type Config struct {
	Env       string `env:"APP_ENV" envDefault:"dev"`
	Port      string `env:"APP_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Store     StoreConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Messaging MessagingConfig
}

// StoreConfig selects and parameterizes the table store driver.
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" envDefault:"postgrest"`

	SupabaseURL     string `env:"SUPABASE_URL"`
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY"`
	SupabaseSchema  string `env:"SUPABASE_SCHEMA"`

	DBUser    string `env:"DB_USER"`
	DBPass    string `env:"DB_PASS"`
	DBHost    string `env:"DB_HOST"`
	DBPort    string `env:"DB_PORT" envDefault:"3306"`
	DBName    string `env:"DB_NAME"`
	DBMigrate bool   `env:"DB_MIGRATE" envDefault:"true"`

	Timeout    time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	MaxRetries uint64        `env:"STORE_MAX_RETRIES" envDefault:"2"`
	RetryBase  time.Duration `env:"STORE_RETRY_BASE" envDefault:"100ms"`
	RetryMax   time.Duration `env:"STORE_RETRY_MAX" envDefault:"2s"`
}

// RetryPolicy returns the timeout and retry bounds applied to store calls.
func (s StoreConfig) RetryPolicy() store.RetryPolicy {
	return store.RetryPolicy{Timeout: s.Timeout, MaxRetries: s.MaxRetries, BaseDelay: s.RetryBase, MaxDelay: s.RetryMax}
}

// MySQL returns the connection options for the mysql driver.
func (s StoreConfig) MySQL() database.Options {
	return database.Options{User: s.DBUser, Pass: s.DBPass, Host: s.DBHost, Port: s.DBPort, Name: s.DBName}
}

// AuthConfig configures token issuing and password hashing.
type AuthConfig struct {
	JWTSecret      string `env:"JWT_SECRET"`
	AccessTTLMin   int    `env:"ACCESS_TOKEN_TTL_MIN" envDefault:"15"`
	RefreshTTLDays int    `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"7"`
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"10"`
}

func (a AuthConfig) AccessTTL() time.Duration  { return time.Duration(a.AccessTTLMin) * time.Minute }
func (a AuthConfig) RefreshTTL() time.Duration { return time.Duration(a.RefreshTTLDays) * 24 * time.Hour }

// MessagingConfig configures the RabbitMQ event publisher and the audit
// consumer. Messaging is off when RabbitMQURL is empty.
type MessagingConfig struct {
	RabbitMQURL   string `env:"RABBITMQ_URL"`
	AuditConsumer bool   `env:"AUDIT_CONSUMER_ENABLED" envDefault:"true"`
	AuditLogPath  string `env:"AUDIT_LOG_PATH" envDefault:"logs/health_record_audit.log"`
}

// ConfigError lists every missing or invalid setting found by Load.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required env vars: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid env vars: "+strings.Join(e.Invalid, ", "))
	}
	return "config: " + strings.Join(parts, "; ")
}

// Load reads configuration values from the environment. Required values
// depend on the selected store driver; all problems are reported together
// in a *ConfigError.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.RateLimit.normalize()
	cfg.Cache.normalize()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	ce := &ConfigError{}
	need := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			ce.Missing = append(ce.Missing, key)
		}
	}
	need("JWT_SECRET", c.Auth.JWTSecret)

	switch c.Store.Driver {
	case DriverPostgREST:
		need("SUPABASE_URL", c.Store.SupabaseURL)
		need("SUPABASE_ANON_KEY", c.Store.SupabaseAnonKey)
	case DriverMySQL:
		need("DB_USER", c.Store.DBUser)
		need("DB_HOST", c.Store.DBHost)
		need("DB_PORT", c.Store.DBPort)
		need("DB_NAME", c.Store.DBName)
	case DriverMemory:
	default:
		ce.Invalid = append(ce.Invalid, fmt.Sprintf("STORE_DRIVER=%q", c.Store.Driver))
	}

	if c.Auth.AccessTTLMin <= 0 {
		ce.Invalid = append(ce.Invalid, "ACCESS_TOKEN_TTL_MIN")
	}
	if c.Auth.RefreshTTLDays <= 0 {
		ce.Invalid = append(ce.Invalid, "REFRESH_TOKEN_TTL_DAYS")
	}
	if c.Store.Timeout < 0 {
		ce.Invalid = append(ce.Invalid, "STORE_TIMEOUT")
	}

	if len(ce.Missing) > 0 || len(ce.Invalid) > 0 {
		return ce
	}
	return nil
}

// IsConfigError reports whether err came from configuration validation.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

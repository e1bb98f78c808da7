package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, map[string]bool{"GET": true}, cfg.Cache.Methods)

	p := cfg.Store.RetryPolicy()
	assert.Equal(t, 5*time.Second, p.Timeout)
	assert.Equal(t, uint64(2), p.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 2*time.Second, p.MaxDelay)
}

func TestLoad_PostgRESTRequiresSupabase(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgrest")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")

	_, err := Load()
	require.Error(t, err)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"JWT_SECRET", "SUPABASE_URL", "SUPABASE_ANON_KEY"}, ce.Missing)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "SUPABASE_ANON_KEY")
}

func TestLoad_MySQLRequiresConnection(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")

	_, err := Load()
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"DB_HOST", "DB_NAME"}, ce.Missing)

	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "health")
	cfg, err := Load()
	require.NoError(t, err)
	o := cfg.Store.MySQL()
	assert.Equal(t, "db", o.Host)
	assert.Equal(t, "3306", o.Port)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "0")

	_, err := Load()
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Empty(t, ce.Missing)
	assert.Equal(t, []string{`STORE_DRIVER="sqlite"`, "ACCESS_TOKEN_TTL_MIN"}, ce.Invalid)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.False(t, IsConfigError(err))
}

func TestRateLimitNormalize(t *testing.T) {
	r := RateLimitConfig{Capacity: 0, RefillTokens: 0, TTL: time.Second, Burst: 20, RefillEvery: 3 * time.Second}
	r.normalize()
	assert.Equal(t, 20, r.Capacity)
	assert.Equal(t, 1, r.RefillTokens)
	assert.Equal(t, 3*time.Second, r.RefillInterval)
	assert.Equal(t, 15*time.Second, r.TTL)

	d := RateLimitConfig{RefillInterval: -1, Burst: -1}
	d.normalize()
	assert.Equal(t, 1, d.Capacity)
	assert.Equal(t, time.Second, d.RefillInterval)
	assert.Equal(t, 5*time.Second, d.TTL)
}

func TestCacheMethods(t *testing.T) {
	c := CacheConfig{MethodList: " get, head ,,"}
	c.normalize()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
	assert.Equal(t, 30*time.Second, c.TTL)
}

func TestRedisAddress(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: "6380", Addr: "other:1"}.Address())
	assert.Equal(t, "other:1", RedisConfig{Addr: "other:1"}.Address())
	assert.Equal(t, "localhost:6379", RedisConfig{}.Address())
}

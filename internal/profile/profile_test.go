package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"STUDYDECK_CACHE_TTL", "STUDYDECK_CACHE_REDIS_ADDR", "STUDYDECK_CACHE_REDIS_PASSWORD",
		"STUDYDECK_CACHE_REDIS_DB", "STUDYDECK_RATE_LIMIT", "STUDYDECK_RATE_BURST",
	} {
		t.Setenv(key, "")
	}

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, 5*time.Minute, p.CacheTTL)
	assert.False(t, p.IsRedisEnabled())
	assert.Equal(t, 0, p.RedisDB)
	assert.Equal(t, 10.0, p.RateLimit)
	assert.Equal(t, 20, p.RateBurst)
}

func TestProfileFromEnv(t *testing.T) {
	t.Setenv("STUDYDECK_CACHE_TTL", "90s")
	t.Setenv("STUDYDECK_CACHE_REDIS_ADDR", "localhost:6379")
	t.Setenv("STUDYDECK_CACHE_REDIS_DB", "3")
	t.Setenv("STUDYDECK_RATE_LIMIT", "2.5")
	t.Setenv("STUDYDECK_RATE_BURST", "not-a-number")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, 90*time.Second, p.CacheTTL)
	assert.True(t, p.IsRedisEnabled())
	assert.Equal(t, 3, p.RedisDB)
	assert.Equal(t, 2.5, p.RateLimit)
	assert.Equal(t, 20, p.RateBurst)
}

func TestProfileFromEnvMalformedRedisDB(t *testing.T) {
	for _, v := range []string{"two", "-1", "1.5"} {
		t.Setenv("STUDYDECK_CACHE_REDIS_DB", v)
		p := &Profile{RedisDB: 7}
		p.FromEnv()
		assert.Equal(t, 0, p.RedisDB, "value %q", v)
	}
}

func TestProfileValidate(t *testing.T) {
	t.Run("sqlite derives dsn", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: dir}
		require.NoError(t, p.Validate())
		assert.Equal(t, filepath.Join(dir, "studydeck_dev.db"), p.DSN)
	})

	t.Run("unknown mode falls back to demo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Driver: "sqlite", Data: t.TempDir()}
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
		assert.True(t, p.IsDev())
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "postgres"}
		assert.Error(t, p.Validate())
	})

	t.Run("unsupported driver", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "oracle"}
		assert.Error(t, p.Validate())
	})

	t.Run("invalid timezone", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir(), Timezone: "Mars/Olympus"}
		assert.Error(t, p.Validate())
	})

	t.Run("prod requires secret", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "postgres", DSN: "postgres://localhost/studydeck"}
		assert.Error(t, p.Validate())
		p.Secret = "s3cret"
		assert.NoError(t, p.Validate())
	})

	t.Run("missing data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: filepath.Join(t.TempDir(), "missing")}
		assert.Error(t, p.Validate())
	})
}

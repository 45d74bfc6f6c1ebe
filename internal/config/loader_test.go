package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/internal/core/engine"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(viper.New(), LoadOptions{})
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Empty(t, cfg.Server.AllowedStores)
		assert.Equal(t, 256, cfg.Server.MaxStores)
		assert.Equal(t, time.Hour, cfg.Server.StoreTTL)

		// Outbound request defaults
		assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
		assert.Equal(t, 2, cfg.Retry.MaxRetries)
		assert.Equal(t, 200*time.Millisecond, cfg.Retry.BaseDelay)
		assert.Equal(t, []int{429, 503}, cfg.Retry.Statuses)

		// Rate limiting is off until enabled
		assert.False(t, cfg.RateLimit.Enabled)
		assert.Equal(t, 5, cfg.RateLimit.MaxRequestsPerInterval)
		assert.Equal(t, time.Second, cfg.RateLimit.Interval)
		assert.Equal(t, 5, cfg.RateLimit.MaxConcurrency)
		assert.Empty(t, cfg.RateLimit.PerHost)

		// Cache and showcase defaults
		assert.Equal(t, 5*time.Minute, cfg.Cache.InfoTTL)
		assert.Equal(t, 5*time.Minute, cfg.Cache.ValidationTTL)
		assert.Equal(t, 10, cfg.Showcase.BatchSize)
		assert.Equal(t, 100*time.Millisecond, cfg.Showcase.BatchPause)

		assert.Equal(t, 15*time.Second, cfg.Enrich.Timeout)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		isolate(t)
		path := writeFile(t, "config.yaml", `
rate_limit:
  enabled: true
  max_requests_per_interval: 2
  per_host:
    "*.myshopify.com":
      max_requests_per_interval: 1
      interval: 2s
    shop.example.com:
      max_concurrency: 1
  per_class:
    "llm:classify":
      interval: 5s
cache:
  info_ttl: 1m
`)

		cfg, err := Load(viper.New(), LoadOptions{ConfigFile: path})
		require.NoError(t, err)

		assert.True(t, cfg.RateLimit.Enabled)
		assert.Equal(t, 2, cfg.RateLimit.MaxRequestsPerInterval)
		assert.Equal(t, time.Minute, cfg.Cache.InfoTTL)

		require.Contains(t, cfg.RateLimit.PerHost, "*.myshopify.com")
		wildcard := cfg.RateLimit.PerHost["*.myshopify.com"]
		require.NotNil(t, wildcard.MaxRequestsPerInterval)
		assert.Equal(t, 1, *wildcard.MaxRequestsPerInterval)
		require.NotNil(t, wildcard.Interval)
		assert.Equal(t, 2*time.Second, *wildcard.Interval)
		assert.Nil(t, wildcard.MaxConcurrency)

		require.Contains(t, cfg.RateLimit.PerHost, "shop.example.com")
		require.Contains(t, cfg.RateLimit.PerClass, "llm:classify")
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("STORELENS_SERVER_PORT", "3000")
		t.Setenv("STORELENS_RATE_LIMIT_ENABLED", "true")
		t.Setenv("STORELENS_RETRY_STATUSES", "429,502,503")
		t.Setenv("STORELENS_CACHE_VALIDATION_TTL", "90s")
		t.Setenv("STORELENS_SERVER_ALLOWED_STORES", "shop.example.com,*.myshopify.com")

		cfg, err := Load(viper.New(), LoadOptions{})
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.True(t, cfg.RateLimit.Enabled)
		assert.Equal(t, []int{429, 502, 503}, cfg.Retry.Statuses)
		assert.Equal(t, 90*time.Second, cfg.Cache.ValidationTTL)
		assert.Equal(t, []string{"shop.example.com", "*.myshopify.com"}, cfg.Server.AllowedStores)
	})

	t.Run("EnvFile", func(t *testing.T) {
		isolate(t)
		path := writeFile(t, ".env", "STORELENS_ENRICH_API_KEY=sk-from-dotenv\n")
		t.Cleanup(func() { _ = os.Unsetenv("STORELENS_ENRICH_API_KEY") })

		cfg, err := Load(viper.New(), LoadOptions{EnvFile: path})
		require.NoError(t, err)
		assert.Equal(t, "sk-from-dotenv", cfg.Enrich.APIKey)
	})

	t.Run("MissingExplicitFiles", func(t *testing.T) {
		isolate(t)
		missing := filepath.Join(t.TempDir(), "nope.yaml")

		_, err := Load(viper.New(), LoadOptions{ConfigFile: missing})
		require.Error(t, err)

		_, err = Load(viper.New(), LoadOptions{EnvFile: missing})
		require.Error(t, err)
	})

	t.Run("Validation", func(t *testing.T) {
		isolate(t)
		t.Setenv("STORELENS_CACHE_INFO_TTL", "0s")

		_, err := Load(viper.New(), LoadOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "InfoTTL")
	})
}

func TestGetConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load(viper.New(), LoadOptions{})
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Same(t, cfg, retrieved)
}

func TestRateLimitConfigEngine(t *testing.T) {
	one := 1
	cfg := RateLimitConfig{
		Enabled:                true,
		MaxRequestsPerInterval: 3,
		Interval:               500 * time.Millisecond,
		MaxConcurrency:         2,
		PerHost:                map[string]engine.BucketPatch{"*.myshopify.com": {MaxConcurrency: &one}},
	}

	out := cfg.Engine()
	require.NotNil(t, out.Enabled)
	assert.True(t, *out.Enabled)
	assert.Equal(t, engine.BucketOptions{MaxRequestsPerInterval: 3, Interval: 500 * time.Millisecond, MaxConcurrency: 2},
		engine.BucketOptions{}.Apply(out.Global))
	assert.Equal(t, cfg.PerHost, out.PerHost)
}

func TestEnvVarName(t *testing.T) {
	assert.Equal(t, "STORELENS_RATE_LIMIT_ENABLED", EnvVarName("rate_limit.enabled"))
}

package config

import (
	"time"

	"github.com/storelens/storelens/internal/core/engine"
)

// Config is the complete storelens configuration. Values come from built-in
// defaults, then the user config file, then .env and STORELENS_* variables,
// then command-line flags.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Showcase  ShowcaseConfig  `mapstructure:"showcase"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`

	// AllowedStores limits /v1/stores/{store} to these hosts ("*." wildcards
	// allowed). Empty allows any store.
	AllowedStores []string `mapstructure:"allowed_stores" validate:"dive,required"`
	// MaxStores bounds the pooled store clients; the least recently used is
	// evicted beyond it.
	MaxStores int `mapstructure:"max_stores" validate:"gte=1"`
	// StoreTTL drops a pooled client this long after it was created.
	StoreTTL time.Duration `mapstructure:"store_ttl" validate:"gte=0"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`

	// Profile selects the gofulmen logging profile for server mode.
	Profile string `mapstructure:"profile" validate:"oneof=simple structured SIMPLE STRUCTURED"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus exporter port.
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// HTTPConfig shapes outbound storefront requests.
type HTTPConfig struct {
	UserAgent string `mapstructure:"user_agent" validate:"required"`

	// Timeout bounds each request attempt.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// RetryConfig is the default retry policy for storefront requests.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay" validate:"gte=0"`
	Statuses   []int         `mapstructure:"statuses" validate:"dive,gte=100,lte=599"`
}

// RateLimitConfig configures the token buckets. Per-host keys are exact
// hostnames or *.suffix wildcards; per-class keys are operation classes such
// as products:list.
type RateLimitConfig struct {
	Enabled                bool                          `mapstructure:"enabled"`
	MaxRequestsPerInterval int                           `mapstructure:"max_requests_per_interval" validate:"gte=1"`
	Interval               time.Duration                 `mapstructure:"interval" validate:"gte=10ms"`
	MaxConcurrency         int                           `mapstructure:"max_concurrency" validate:"gte=1"`
	PerHost                map[string]engine.BucketPatch `mapstructure:"per_host"`
	PerClass               map[string]engine.BucketPatch `mapstructure:"per_class"`
}

// CacheConfig contains per-client cache TTLs.
type CacheConfig struct {
	InfoTTL       time.Duration `mapstructure:"info_ttl" validate:"gt=0"`
	ValidationTTL time.Duration `mapstructure:"validation_ttl" validate:"gt=0"`
}

// ShowcaseConfig controls batch validation of showcase handles.
type ShowcaseConfig struct {
	BatchSize int `mapstructure:"batch_size" validate:"gte=1,lte=100"`

	// BatchPause separates batches; zero or negative disables the pause.
	BatchPause time.Duration `mapstructure:"batch_pause"`
}

// EnrichConfig configures the product classifier.
type EnrichConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// Engine converts the rate limit section into a registry configuration.
func (c RateLimitConfig) Engine() engine.RateLimitConfig {
	enabled := c.Enabled
	global := engine.BucketOptions{
		MaxRequestsPerInterval: c.MaxRequestsPerInterval,
		Interval:               c.Interval,
		MaxConcurrency:         c.MaxConcurrency,
	}
	return engine.RateLimitConfig{
		Enabled:  &enabled,
		Global:   global.Patch(),
		PerHost:  c.PerHost,
		PerClass: c.PerClass,
	}
}

// Policy converts the retry section into a fetch retry policy.
func (c RetryConfig) Policy() *engine.RetryPolicy {
	statuses := append([]int(nil), c.Statuses...)
	return &engine.RetryPolicy{
		MaxRetries:      c.MaxRetries,
		BaseDelay:       c.BaseDelay,
		RetryOnStatuses: statuses,
	}
}

// Package config loads storelens configuration with viper. Layers, lowest
// first: built-in defaults, $XDG_CONFIG_HOME/storelens/config.yaml (or
// ./config/config.yaml), a .env file, STORELENS_* environment variables and
// bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/storelens/storelens/internal/appid"
)

var (
	appConfig *Config
	configMu  sync.RWMutex

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// LoadOptions selects explicit files instead of the discovered ones.
type LoadOptions struct {
	// ConfigFile replaces config file discovery.
	ConfigFile string
	// EnvFile is loaded before reading the environment. Defaults to ./.env;
	// a missing default file is not an error.
	EnvFile string
}

// Load prepares v, reads every layer and returns the validated config. The
// result also becomes the process-wide config returned by GetConfig.
func Load(v *viper.Viper, opts LoadOptions) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	if err := Prepare(v, opts); err != nil {
		return nil, err
	}

	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}
	setConfig(cfg)
	return cfg, nil
}

// Prepare registers defaults, environment binding and the config file on v.
func Prepare(v *viper.Viper, opts LoadOptions) error {
	SetDefaults(v)

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return err
	}
	v.SetEnvPrefix(strings.TrimSuffix(appid.EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		if dir := gfconfig.GetAppConfigDir(appid.ConfigName); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Decode converts the settings held by v into a validated Config.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := decodeInto(v.AllSettings(), cfg); err != nil {
		return nil, err
	}

	// Host patterns contain dots, which AllSettings splits into nested keys.
	// Read the maps as stored instead.
	cfg.RateLimit.PerHost = nil
	if err := decodeInto(v.Get("rate_limit.per_host"), &cfg.RateLimit.PerHost); err != nil {
		return nil, fmt.Errorf("rate_limit.per_host: %w", err)
	}
	cfg.RateLimit.PerClass = nil
	if err := decodeInto(v.Get("rate_limit.per_class"), &cfg.RateLimit.PerClass); err != nil {
		return nil, fmt.Errorf("rate_limit.per_class: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decodeInto(input, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToWeakSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_stores", []string{})
	v.SetDefault("server.max_stores", 256)
	v.SetDefault("server.store_ttl", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("health.enabled", true)

	v.SetDefault("http.user_agent", appid.BinaryName+"/dev")
	v.SetDefault("http.timeout", "30s")

	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.base_delay", "200ms")
	v.SetDefault("retry.statuses", []int{429, 503})

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.max_requests_per_interval", 5)
	v.SetDefault("rate_limit.interval", "1s")
	v.SetDefault("rate_limit.max_concurrency", 5)
	v.SetDefault("rate_limit.per_host", map[string]any{})
	v.SetDefault("rate_limit.per_class", map[string]any{})

	v.SetDefault("cache.info_ttl", "5m")
	v.SetDefault("cache.validation_ttl", "5m")

	v.SetDefault("showcase.batch_size", 10)
	v.SetDefault("showcase.batch_pause", "100ms")

	v.SetDefault("enrich.base_url", "https://api.openai.com/v1")
	v.SetDefault("enrich.api_key", "")
	v.SetDefault("enrich.model", "gpt-4o-mini")
	v.SetDefault("enrich.timeout", "15s")
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	dir := gfconfig.GetAppConfigDir(appid.ConfigName)
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// EnvVarName returns the environment variable that overrides key.
func EnvVarName(key string) string {
	return appid.EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
}

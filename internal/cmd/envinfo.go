package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/storelens/storelens/internal/config"
	"github.com/storelens/storelens/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()
		identity := GetAppIdentity()

		log.Info("=== " + identity.BinaryName + " Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + identity.BinaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("  Env Prefix: " + identity.EnvPrefix)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		log.Info("")

		cfg := GetConfig()
		if cfg == nil {
			log.Warn("Configuration not loaded")
			return
		}

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			configFile = config.DefaultConfigPath() + " (not present)"
		}

		log.Info("Configuration:")
		log.Info("  Config File:    "+configFile, zap.String("config_file", configFile))
		log.Info("  Server:         "+fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))
		log.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info("  Log Profile:    "+cfg.Logging.Profile, zap.String("log_profile", cfg.Logging.Profile))
		log.Info(fmt.Sprintf("  Metrics:        %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		log.Info("")

		log.Info("Requests:")
		log.Info("  User-Agent:     " + cfg.HTTP.UserAgent)
		log.Info("  Timeout:        " + cfg.HTTP.Timeout.String())
		log.Info(fmt.Sprintf("  Retries:        %d (base delay %s, statuses %v)", cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, cfg.Retry.Statuses))
		log.Info(fmt.Sprintf("  Rate Limit:     %t", cfg.RateLimit.Enabled), zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled))
		if cfg.RateLimit.Enabled {
			log.Info(fmt.Sprintf("  Global Bucket:  %d per %s, concurrency %d",
				cfg.RateLimit.MaxRequestsPerInterval, cfg.RateLimit.Interval, cfg.RateLimit.MaxConcurrency))
			log.Info(fmt.Sprintf("  Overrides:      %d host, %d class", len(cfg.RateLimit.PerHost), len(cfg.RateLimit.PerClass)))
		}
		log.Info("")

		log.Info("Caching:")
		log.Info("  Store Info TTL: " + cfg.Cache.InfoTTL.String())
		log.Info("  Handle TTL:     " + cfg.Cache.ValidationTTL.String())
		log.Info(fmt.Sprintf("  Showcase Batch: %d (pause %s)", cfg.Showcase.BatchSize, cfg.Showcase.BatchPause))
		log.Info("")

		log.Info("Classification:")
		log.Info("  Base URL:       " + cfg.Enrich.BaseURL)
		log.Info("  Model:          " + cfg.Enrich.Model)
		if strings.TrimSpace(cfg.Enrich.APIKey) != "" {
			log.Info("  API Key:        (set)")
		} else {
			log.Info("  API Key:        (not set)")
		}
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}

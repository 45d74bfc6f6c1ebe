package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/storelens/storelens/internal/config"
	"github.com/storelens/storelens/internal/core/engine"
	errwrap "github.com/storelens/storelens/internal/errors"
	"github.com/storelens/storelens/internal/metrics"
	"github.com/storelens/storelens/internal/observability"
	"github.com/storelens/storelens/internal/server"
	"github.com/storelens/storelens/internal/server/handlers"
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	identity *appidentity.Identity
}

func (i identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case i.identity == nil:
		return errwrap.NewInternalError("app identity not loaded")
	case i.identity.BinaryName == "":
		return errwrap.NewInternalError("app identity missing binary name")
	case i.identity.EnvPrefix == "":
		return errwrap.NewInternalError("app identity missing env prefix")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API with graceful shutdown support.

Store data is served under /v1/stores/{store}/... with one cached client per
store sharing a single rate limiter.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read the config file and apply rate limit changes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, cfg.Logging.Profile, namespace)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, namespace); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		registry := newRegistry(cfg, logger)
		fetcher := newFetcher(cfg, registry, logger)
		pool := server.NewStorePool(storeOptions(cfg, fetcher, logger), server.PoolOptions{
			AllowedStores: cfg.Server.AllowedStores,
			MaxStores:     cfg.Server.MaxStores,
			TTL:           cfg.Server.StoreTTL,
		})

		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("store_pool", pool)
		hm.RegisterChecker("rate_limiter", handlers.RateLimitChecker{Registry: registry})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}
		hm.RegisterChecker("identity", identityHealthChecker{identity: identity})
		handlers.SetAppIdentity(identity)

		srv := server.New(cfg.Server, pool)
		metrics.SetServerStartTime(time.Now().Unix())

		logger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Bool("rate_limit", cfg.RateLimit.Enabled))

		// Shutdown handlers run LIFO: the server stops before the logger flushes.
		signals.OnShutdown(func(ctx context.Context) error {
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})
		signals.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			return reloadRateLimits(ctx, registry)
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}
		return nil
	},
}

// reloadRateLimits re-reads configuration and applies its rate limit
// section to the live registry. Other settings need a restart.
func reloadRateLimits(ctx context.Context, registry *engine.Registry) error {
	logger := observability.ServerLogger

	cfg, err := config.Load(viper.GetViper(), config.LoadOptions{ConfigFile: cfgFile, EnvFile: envFile})
	if err != nil {
		logger.Error("Failed to reload configuration", zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}
	registry.Configure(cfg.RateLimit.Engine())
	appConfig = cfg

	logger.Info("Rate limits reloaded",
		zap.String("file", viper.ConfigFileUsed()),
		zap.Bool("enabled", cfg.RateLimit.Enabled))
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/storelens/storelens/internal/appid"
	"github.com/storelens/storelens/internal/config"
	errwrap "github.com/storelens/storelens/internal/errors"
	"github.com/storelens/storelens/internal/observability"
)

var (
	cfgFile      string
	envFile      string
	verbose      bool
	outputFormat string
	outputPath   string

	appIdentity *appidentity.Identity
	appConfig   *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appidentity.Identity {
	if appIdentity == nil {
		return appid.Default()
	}
	return appIdentity
}

// GetConfig returns the loaded configuration (only valid after initConfig)
func GetConfig() *config.Config {
	return appConfig
}

var rootCmd = &cobra.Command{
	Use:   appid.BinaryName,
	Short: appid.Description,
	Long: appid.BinaryName + ` reads public Shopify storefronts: store info, products,
collections and handle redirects, with shared retries, rate limits and caching.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Keep telemetry quiet for CLI commands; serve installs the real system.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", appid.ConfigName))
	flags.StringVar(&envFile, "env-file", "", "dotenv file to load (default ./.env when present)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.StringVarP(&outputFormat, "output", "o", "table", "output format: table, markdown, json, yaml")
	flags.StringVar(&outputPath, "out", "", "write output to a file instead of stdout")
	flags.Bool("rate-limit", false, "enable client-side rate limiting")
	flags.Duration("timeout", 0, "per-attempt request timeout (default from config)")
	flags.String("user-agent", "", "User-Agent for storefront requests")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("rate_limit.enabled", flags.Lookup("rate-limit"))
	_ = viper.BindPFlag("http.timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("http.user_agent", flags.Lookup("user-agent"))
}

func applyIdentity(identity *appidentity.Identity) {
	appIdentity = identity
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
	}
}

// initConfig loads identity, the CLI logger and configuration.
func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity", err)
	}
	applyIdentity(identity)

	observability.InitCLILogger(identity.BinaryName, verbose)

	cfg, err := config.Load(viper.GetViper(), config.LoadOptions{ConfigFile: cfgFile, EnvFile: envFile})
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration",
			errwrap.WrapConfigInvalid(context.Background(), err, "configuration invalid"))
	}
	appConfig = cfg

	if used := viper.ConfigFileUsed(); used != "" {
		observability.CLILogger.Debug("Using config file", zap.String("path", used))
	}
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/storelens/storelens/internal/core/storefront"
	errwrap "github.com/storelens/storelens/internal/errors"
	"github.com/storelens/storelens/internal/observability"
)

type healthCheck struct {
	name   string
	ok     bool
	detail string
}

var healthCmd = &cobra.Command{
	Use:   "health [store]",
	Short: "Run self-health check",
	Long: `Run a self-health check to verify the application can start successfully.

With a store argument the check also fetches the store home page through the
configured rate limiter and retry policy.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		observability.CLILogger.Info("Running health check...")

		checks := []healthCheck{
			{name: "version", ok: versionInfo.Version != "", detail: versionInfo.Version},
			{name: "logger", ok: observability.CLILogger != nil},
		}

		cfg := GetConfig()
		configDetail := "defaults"
		if path := viper.ConfigFileUsed(); path != "" {
			configDetail = path
		}
		checks = append(checks, healthCheck{name: "config", ok: cfg != nil, detail: configDetail})

		if cfg != nil {
			state := "disabled"
			if cfg.RateLimit.Enabled {
				state = fmt.Sprintf("%d per %s, concurrency %d",
					cfg.RateLimit.MaxRequestsPerInterval, cfg.RateLimit.Interval, cfg.RateLimit.MaxConcurrency)
			}
			checks = append(checks, healthCheck{name: "rate limit", ok: true, detail: state})
		}

		if len(args) == 1 && cfg != nil {
			checks = append(checks, probeStore(cmd, args[0]))
		}

		lines := []string{"Health", ""}
		failed := 0
		for _, check := range checks {
			mark := "ok  "
			if !check.ok {
				mark = "FAIL"
				failed++
			}
			line := fmt.Sprintf("%s %s", mark, check.name)
			if check.detail != "" {
				line += ": " + check.detail
			}
			lines = append(lines, line)
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join(lines, "\n"), 0))

		if failed > 0 {
			return errwrap.NewInternalError(fmt.Sprintf("%d health checks failed", failed))
		}
		observability.CLILogger.Info("All health checks passed")
		return nil
	},
}

func probeStore(cmd *cobra.Command, store string) healthCheck {
	check := healthCheck{name: "store"}
	s, err := openSession(store)
	if err != nil {
		check.detail = err.Error()
		return check
	}
	defer s.close()

	info, err := s.client.Info(cmd.Context(), storefront.InfoOptions{Force: true})
	if err != nil {
		observability.CLILogger.Debug("Store probe failed", zap.String("store", store), zap.Error(err))
		check.detail = err.Error()
		return check
	}
	check.ok = true
	check.detail = fmt.Sprintf("%s (%s)", s.client.Domain(), info.Name)
	return check
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storelens/storelens/internal/observability"
	"github.com/storelens/storelens/internal/output"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show effective rate limit scopes",
	Long: `Show the rate limit settings every scope resolves to: the global
default, per-host patterns and per-class overrides. Class scopes win over
host scopes, which win over the global scope.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}

		registry := newRegistry(cfg, observability.CLILogger)
		defer registry.Stop()

		view := output.LimitsView{
			Enabled:    registry.Enabled(),
			Configured: registry.Configured(),
			Live:       registry.Snapshot(),
		}
		return render(cmd, view, view)
	},
}

func init() {
	rootCmd.AddCommand(limitsCmd)
}

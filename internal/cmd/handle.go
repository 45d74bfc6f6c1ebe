package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/output"
)

var handleCmd = &cobra.Command{
	Use:   "handle <store> <product|collection> <handle>",
	Short: "Check a handle and resolve it through storefront redirects",
	Long: `Check whether a product or collection handle exists and report the
canonical handle the storefront redirects it to.`,
	Example: "  storelens handle shop.example.com collection summer",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := core.ResourceKind(strings.ToLower(strings.TrimSpace(args[1])))
		if err := core.ValidateKind(kind); err != nil {
			return err
		}
		if err := core.ValidateHandle(args[2]); err != nil {
			return err
		}

		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.close()

		view := output.HandleView{
			Kind:   kind,
			Exists: s.client.HandleExists(cmd.Context(), kind, args[2]),
			Handle: s.client.ResolveCanonicalHandle(cmd.Context(), kind, args[2]),
		}
		return render(cmd, view, view)
	},
}

func init() {
	rootCmd.AddCommand(handleCmd)
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/storelens/storelens/internal/core/storefront"
	"github.com/storelens/storelens/internal/output"
)

var infoForce bool

var infoCmd = &cobra.Command{
	Use:   "info <store>",
	Short: "Show store name, contacts, socials and showcased handles",
	Long: `Fetch the store home page and extract its public identity.

Showcased product and collection handles are checked against the store and
only the ones that exist are listed.`,
	Example: "  storelens info shop.example.com\n  storelens info https://shop.example.com -o json",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.close()

		info, err := s.client.Info(cmd.Context(), storefront.InfoOptions{Force: infoForce})
		if err != nil {
			return err
		}
		return render(cmd, info, output.StoreInfoView{Info: info})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&infoForce, "force", false, "bypass the store info cache")
}

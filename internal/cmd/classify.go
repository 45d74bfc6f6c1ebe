package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/enrich"
	"github.com/storelens/storelens/internal/output"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <store> <handle>",
	Short: "Classify a product with an OpenAI-compatible model",
	Long: `Fetch a product and ask a chat completion model for its category,
audience and tags. Requires enrich.api_key (or STORELENS_ENRICH_API_KEY).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.close()

		product, err := s.client.FindProduct(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: product %q", core.ErrNotFound, args[1])
		}

		result, err := s.classifier().Classify(cmd.Context(), product)
		if err != nil {
			if code := enrich.ErrorCode(err); code != "" {
				return fmt.Errorf("%s: %w", code, err)
			}
			return err
		}
		return render(cmd, result, output.ClassificationView{Classification: result})
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

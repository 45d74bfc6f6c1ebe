package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/engine"
	"github.com/storelens/storelens/internal/output"
)

// pageFlags selects one page or, with --all, every page.
type pageFlags struct {
	page  int
	limit int
	all   bool
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page number (1-based)")
	cmd.Flags().IntVar(&f.limit, "limit", 30, fmt.Sprintf("items per page (max %d)", engine.MaxPageLimit))
	cmd.Flags().BoolVar(&f.all, "all", false, "walk every page")
}

func listItems[T any](ctx context.Context, f pageFlags, page func(context.Context, int, int) ([]T, error), all func(context.Context) ([]T, error)) ([]T, error) {
	if f.all {
		return all(ctx)
	}
	return page(ctx, f.page, f.limit)
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List and inspect store products",
}

var productsListFlags pageFlags

var productsListCmd = &cobra.Command{
	Use:   "list <store>",
	Short: "List products from /products.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.close()

		products, err := listItems(cmd.Context(), productsListFlags, s.client.ProductsPage, s.client.AllProducts)
		if err != nil {
			return err
		}
		return render(cmd, products, output.ProductsView{Products: products})
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get <store> <handle>",
	Short: "Show one product, following handle redirects",
	Args:  cobra.ExactArgs(2),
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
		return render(cmd, product, output.ProductView{Product: product})
	},
}

var productsShowcaseCmd = &cobra.Command{
	Use:   "showcase <store>",
	Short: "Show the products linked from the store home page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.close()

		products, err := s.client.ShowcasedProducts(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, products, output.ProductsView{Products: products})
	},
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsListCmd, productsGetCmd, productsShowcaseCmd)
	productsListFlags.register(productsListCmd)
}

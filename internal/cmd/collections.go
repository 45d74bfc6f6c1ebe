package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/output"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List and inspect store collections",
}

var collectionsListFlags pageFlags

var collectionsListCmd = &cobra.Command{
	Use:   "list <store>",
	Short: "List collections from /collections.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.close()

		collections, err := listItems(cmd.Context(), collectionsListFlags, s.client.CollectionsPage, s.client.AllCollections)
		if err != nil {
			return err
		}
		return render(cmd, collections, output.CollectionsView{Collections: collections})
	},
}

var collectionsGetCmd = &cobra.Command{
	Use:   "get <store> <handle>",
	Short: "Show one collection, following handle redirects",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.close()

		collection, err := s.client.FindCollection(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if collection == nil {
			return fmt.Errorf("%w: collection %q", core.ErrNotFound, args[1])
		}
		return render(cmd, collection, output.CollectionView{Collection: collection})
	},
}

var collectionProductsFlags pageFlags

var collectionsProductsCmd = &cobra.Command{
	Use:   "products <store> <handle>",
	Short: "List the products in a collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.close()

		handle := args[1]
		page := func(ctx context.Context, page, limit int) ([]core.Product, error) {
			return s.client.CollectionProductsPage(ctx, handle, page, limit)
		}
		all := func(ctx context.Context) ([]core.Product, error) {
			return s.client.AllCollectionProducts(ctx, handle)
		}
		products, err := listItems(cmd.Context(), collectionProductsFlags, page, all)
		if err != nil {
			return err
		}
		return render(cmd, products, output.ProductsView{Products: products})
	},
}

var collectionsShowcaseCmd = &cobra.Command{
	Use:   "showcase <store>",
	Short: "Show the collections linked from the store home page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.close()

		collections, err := s.client.ShowcasedCollections(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, collections, output.CollectionsView{Collections: collections})
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.AddCommand(collectionsListCmd, collectionsGetCmd, collectionsProductsCmd, collectionsShowcaseCmd)
	collectionsListFlags.register(collectionsListCmd)
	collectionProductsFlags.register(collectionsProductsCmd)
}

package storefront

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/dto"
	"github.com/storelens/storelens/internal/core/engine"
)

// CollectionsPage fetches one page of /collections.json.
func (c *Client) CollectionsPage(ctx context.Context, page, limit int) ([]core.Collection, error) {
	if err := engine.ValidatePage(page, limit); err != nil {
		return nil, err
	}

	target := c.resolve("/collections.json", pageQuery(page, limit))
	const reqContext = "list collections"

	resp, err := c.fetcher.Get(ctx, target, "application/json", engine.RequestOptions{
		Class:   ClassCollectionsList,
		Context: reqContext,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &core.RequestError{URL: target, Context: reqContext, StatusCode: resp.StatusCode, Err: engine.ErrPageUnavailable}
	}

	collections, err := dto.DecodeCollectionListing(resp.Body, c.baseURL)
	if err != nil {
		c.logDecodeFailure(target, err)
		return nil, &core.RequestError{URL: target, Context: reqContext, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", engine.ErrPageUnavailable, err)}
	}
	return collections, nil
}

// AllCollections sweeps every collection page.
func (c *Client) AllCollections(ctx context.Context) ([]core.Collection, error) {
	return engine.CollectAll(ctx, c.CollectionsPage)
}

// FindCollection returns the collection for handle, following handle
// redirects. A missing collection yields nil and no error.
func (c *Client) FindCollection(ctx context.Context, handle string) (*core.Collection, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	handle = strings.TrimSpace(handle)
	if err := core.ValidateHandle(handle); err != nil {
		return nil, err
	}

	canonical := c.ResolveCanonicalHandle(ctx, core.KindCollection, handle)
	target := c.resolve("/collections/"+canonical.Handle+".json", nil)
	const reqContext = "find collection"

	resp, err := c.fetcher.Get(ctx, target, "application/json", engine.RequestOptions{
		Class:   ClassCollectionsFind,
		Context: reqContext,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &core.RequestError{URL: target, Context: reqContext, StatusCode: resp.StatusCode}
	}

	collection, err := dto.DecodeCollection(resp.Body, c.baseURL)
	if err != nil {
		return nil, &core.RequestError{URL: target, Context: reqContext, StatusCode: resp.StatusCode, Err: err}
	}
	return collection, nil
}

// CollectionProductsPage fetches one page of products in a collection. The
// handle is resolved through redirects before the listing request.
func (c *Client) CollectionProductsPage(ctx context.Context, handle string, page, limit int) ([]core.Product, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	handle = strings.TrimSpace(handle)
	if err := core.ValidateHandle(handle); err != nil {
		return nil, err
	}
	if err := engine.ValidatePage(page, limit); err != nil {
		return nil, err
	}

	canonical := c.ResolveCanonicalHandle(ctx, core.KindCollection, handle)
	return c.collectionProducts(ctx, canonical.Handle, page, limit)
}

// AllCollectionProducts sweeps every product page of a collection. The
// handle is resolved once for the whole sweep.
func (c *Client) AllCollectionProducts(ctx context.Context, handle string) ([]core.Product, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	handle = strings.TrimSpace(handle)
	if err := core.ValidateHandle(handle); err != nil {
		return nil, err
	}

	canonical := c.ResolveCanonicalHandle(ctx, core.KindCollection, handle)
	return engine.CollectAll(ctx, func(ctx context.Context, page, limit int) ([]core.Product, error) {
		return c.collectionProducts(ctx, canonical.Handle, page, limit)
	})
}

// ShowcasedCollections loads the collections featured on the home page.
func (c *Client) ShowcasedCollections(ctx context.Context) ([]core.Collection, error) {
	info, err := c.Info(ctx, InfoOptions{})
	if err != nil {
		return nil, err
	}
	return showcase(ctx, c, info.ShowcaseCollections, c.FindCollection), nil
}

func (c *Client) collectionProducts(ctx context.Context, handle string, page, limit int) ([]core.Product, error) {
	target := c.resolve("/collections/"+handle+"/products.json", pageQuery(page, limit))
	return c.productListing(ctx, target, ClassCollectionProducts, "list collection products")
}

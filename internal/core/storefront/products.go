package storefront

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/dto"
	"github.com/storelens/storelens/internal/core/engine"
)

// ProductsPage fetches one page of /products.json. Upstream failures are
// reported as a *core.RequestError wrapping engine.ErrPageUnavailable.
func (c *Client) ProductsPage(ctx context.Context, page, limit int) ([]core.Product, error) {
	if err := engine.ValidatePage(page, limit); err != nil {
		return nil, err
	}
	return c.productListing(ctx, c.resolve("/products.json", pageQuery(page, limit)), ClassProductsList, "list products")
}

// AllProducts sweeps every page of the catalog. A page that cannot be
// fetched ends the sweep with what was collected so far.
func (c *Client) AllProducts(ctx context.Context) ([]core.Product, error) {
	return engine.CollectAll(ctx, c.ProductsPage)
}

// FindProduct returns the product for handle, following handle redirects.
// A missing product yields nil and no error.
func (c *Client) FindProduct(ctx context.Context, handle string) (*core.Product, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	handle = strings.TrimSpace(handle)
	if err := core.ValidateHandle(handle); err != nil {
		return nil, err
	}

	canonical := c.ResolveCanonicalHandle(ctx, core.KindProduct, handle)
	target := c.resolve("/products/"+canonical.Handle+".js", nil)
	const reqContext = "find product"

	resp, err := c.fetcher.Get(ctx, target, "application/json", engine.RequestOptions{
		Class:   ClassProductsFind,
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

	product, err := dto.DecodeProductJS(resp.Body, c.baseURL)
	if err != nil {
		return nil, &core.RequestError{URL: target, Context: reqContext, StatusCode: resp.StatusCode, Err: err}
	}
	return product, nil
}

// ShowcasedProducts loads the products featured on the home page, in the
// order they appear. Products that fail to load are skipped.
func (c *Client) ShowcasedProducts(ctx context.Context) ([]core.Product, error) {
	info, err := c.Info(ctx, InfoOptions{})
	if err != nil {
		return nil, err
	}
	return showcase(ctx, c, info.ShowcaseProducts, c.FindProduct), nil
}

func (c *Client) productListing(ctx context.Context, target, class, reqContext string) ([]core.Product, error) {
	resp, err := c.fetcher.Get(ctx, target, "application/json", engine.RequestOptions{
		Class:   class,
		Context: reqContext,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &core.RequestError{URL: target, Context: reqContext, StatusCode: resp.StatusCode, Err: engine.ErrPageUnavailable}
	}

	products, err := dto.DecodeProductListing(resp.Body, c.baseURL)
	if err != nil {
		c.logDecodeFailure(target, err)
		return nil, &core.RequestError{URL: target, Context: reqContext, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", engine.ErrPageUnavailable, err)}
	}
	return products, nil
}

// showcase loads each handle with find, at most batchSize at a time, and
// keeps the successful results in handle order.
func showcase[T any](ctx context.Context, c *Client, handles []string, find func(context.Context, string) (*T, error)) []T {
	results := make([]*T, len(handles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batchSize)
	for i, handle := range handles {
		g.Go(func() error {
			item, err := find(gctx, handle)
			if err != nil {
				if c.logger != nil {
					c.logger.Debug("Skipping showcased item",
						zap.String("store", c.Domain()),
						zap.String("handle", handle),
						zap.Error(err))
				}
				return nil
			}
			results[i] = item
			return nil
		})
	}
	_ = g.Wait()

	out := make([]T, 0, len(handles))
	for _, item := range results {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func pageQuery(page, limit int) url.Values {
	return url.Values{
		"page":  []string{strconv.Itoa(page)},
		"limit": []string{strconv.Itoa(limit)},
	}
}

func (c *Client) logDecodeFailure(target string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("Could not decode storefront payload",
		zap.String("url", target),
		zap.Error(err))
}

package storefront

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/engine"
	"github.com/storelens/storelens/internal/core/scrape"
	"github.com/storelens/storelens/internal/metrics"
)

const infoKey = "info"

// InfoOptions tunes Info.
type InfoOptions struct {
	// Force drops the cached value before looking it up. A fetch already in
	// flight is joined rather than restarted.
	Force bool
}

// Info returns store info, fetching it at most once at a time per client.
// Callers arriving while a fetch is in flight share its outcome. Successful
// results are cached for the info TTL; failures are never cached.
func (c *Client) Info(ctx context.Context, opts InfoOptions) (*core.StoreInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Force {
		c.ClearInfoCache()
	}

	if info, ok := c.cachedInfo(); ok {
		metrics.RecordCacheLookup("store_info", true)
		return info, nil
	}
	metrics.RecordCacheLookup("store_info", false)

	// The shared fetch must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := c.infoGroup.DoChan(infoKey, func() (any, error) {
		info, err := c.fetchInfo(shared)
		if err != nil {
			return nil, err
		}
		c.infoMu.Lock()
		c.info = &cacheEntry[*core.StoreInfo]{value: info, storedAt: c.now()}
		c.infoMu.Unlock()
		return info, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.StoreInfo), nil
	}
}

// ClearInfoCache drops the cached store info. An in-flight fetch is not
// affected and repopulates the cache when it completes.
func (c *Client) ClearInfoCache() {
	c.infoMu.Lock()
	c.info = nil
	c.infoMu.Unlock()
}

func (c *Client) cachedInfo() (*core.StoreInfo, bool) {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	if c.info == nil || !c.info.fresh(c.now(), c.infoTTL) {
		return nil, false
	}
	return c.info.value, true
}

func (c *Client) fetchInfo(ctx context.Context) (*core.StoreInfo, error) {
	target := c.resolve("/", nil)
	resp, err := c.fetcher.Get(ctx, target, "text/html", engine.RequestOptions{
		Class:   ClassStoreInfo,
		Context: "fetch store info",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		return nil, &core.RequestError{URL: target, Context: "fetch store info", StatusCode: resp.StatusCode}
	}

	raw, err := scrape.ParseStoreInfo(c.baseURL, resp.Body)
	if err != nil {
		return nil, &core.RequestError{URL: target, Context: "parse store info", Err: err}
	}

	products := c.FilterExisting(ctx, core.KindProduct, raw.ProductHandles)
	collections := c.FilterExisting(ctx, core.KindCollection, raw.CollectionHandles)

	if c.logger != nil {
		c.logger.Debug("Store info fetched",
			zap.String("store", c.Domain()),
			zap.Int("showcase_products", len(products)),
			zap.Int("showcase_collections", len(collections)),
			zap.Int("discarded_handles", len(raw.ProductHandles)+len(raw.CollectionHandles)-len(products)-len(collections)))
	}

	info := &core.StoreInfo{
		Domain:              c.Domain(),
		Name:                raw.Name,
		Title:               raw.Title,
		Description:         raw.Description,
		LogoURL:             raw.LogoURL,
		Currency:            raw.Currency,
		ContactEmails:       raw.Emails,
		ContactPhones:       raw.Phones,
		ShowcaseProducts:    products,
		ShowcaseCollections: collections,
		FetchedAt:           c.now(),
	}
	if len(raw.SocialLinks) > 0 {
		info.SocialLinks = raw.SocialLinks
	}
	return info, nil
}

package storefront

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/engine"
	"github.com/storelens/storelens/internal/metrics"
)

// HandleExists reports whether kind/handle resolves on the store. Results,
// including failed probes, are cached per kind and handle for the validation
// TTL. Invalid input is reported as false without a request.
func (c *Client) HandleExists(ctx context.Context, kind core.ResourceKind, handle string) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	handle = strings.TrimSpace(handle)
	if core.ValidateKind(kind) != nil || core.ValidateHandle(handle) != nil {
		return false
	}

	key := string(kind) + ":" + handle
	if exists, ok := c.cachedValidation(key); ok {
		metrics.RecordCacheLookup("handle_validation", true)
		return exists
	}
	metrics.RecordCacheLookup("handle_validation", false)

	exists, err := c.probe(ctx, kind, handle)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if c.logger != nil {
			c.logger.Debug("Handle probe failed",
				zap.String("store", c.Domain()),
				zap.String("key", key),
				zap.Error(err))
		}
	}

	c.validationMu.Lock()
	c.validation[key] = cacheEntry[bool]{value: exists, storedAt: c.now()}
	c.validationMu.Unlock()
	return exists
}

// FilterExisting keeps the handles that exist, preserving input order. Probes
// run concurrently in batches with a pause between batches.
func (c *Client) FilterExisting(ctx context.Context, kind core.ResourceKind, handles []string) []string {
	if ctx == nil {
		ctx = context.Background()
	}

	out := make([]string, 0, len(handles))
	for start := 0; start < len(handles); start += c.batchSize {
		if start > 0 && !pause(ctx, c.batchPause) {
			break
		}

		end := min(start+c.batchSize, len(handles))
		batch := handles[start:end]
		results := make([]bool, len(batch))

		var wg sync.WaitGroup
		for i, handle := range batch {
			wg.Go(func() {
				results[i] = c.HandleExists(ctx, kind, handle)
			})
		}
		wg.Wait()

		for i, ok := range results {
			if ok {
				out = append(out, batch[i])
			}
		}
	}
	return out
}

// ClearValidationCache drops every cached existence result.
func (c *Client) ClearValidationCache() {
	c.validationMu.Lock()
	c.validation = make(map[string]cacheEntry[bool])
	c.validationMu.Unlock()
}

func (c *Client) cachedValidation(key string) (bool, bool) {
	c.validationMu.Lock()
	defer c.validationMu.Unlock()
	entry, ok := c.validation[key]
	if !ok || !entry.fresh(c.now(), c.validationTTL) {
		return false, false
	}
	return entry.value, true
}

func (c *Client) probe(ctx context.Context, kind core.ResourceKind, handle string) (bool, error) {
	path := "/products/" + handle + ".js"
	if kind == core.KindCollection {
		path = "/collections/" + handle + ".json"
	}

	resp, err := c.fetcher.Head(ctx, c.resolve(path, nil), engine.RequestOptions{
		Class:   ClassValidateHandle,
		Context: "validate " + string(kind) + " handle",
	})
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

package storefront

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/engine"
)

// ResolveCanonicalHandle loads the HTML page for kind/handle and follows
// redirects. When the store redirected to another handle of the same kind,
// that handle is returned. It never fails; any problem yields the requested
// handle unchanged.
func (c *Client) ResolveCanonicalHandle(ctx context.Context, kind core.ResourceKind, handle string) core.CanonicalHandle {
	handle = strings.TrimSpace(handle)
	result := core.CanonicalHandle{Requested: handle, Handle: handle}
	if ctx == nil {
		ctx = context.Background()
	}
	if core.ValidateKind(kind) != nil || core.ValidateHandle(handle) != nil {
		return result
	}

	target := c.resolve("/"+kind.PathSegment()+"/"+handle, nil)
	resp, err := c.fetcher.Get(ctx, target, "text/html", engine.RequestOptions{
		Class:   ClassResolveHandle,
		Context: "resolve " + string(kind) + " handle",
	})
	if err != nil {
		c.logResolveFailure(target, err)
		return result
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || resp.Request == nil || resp.Request.URL == nil {
		return result
	}

	canonical := handleFromPath(kind, resp.Request.URL)
	if canonical == "" || canonical == handle {
		return result
	}

	result.Handle = canonical
	result.Redirected = true
	return result
}

// handleFromPath extracts the handle from /{kind}s/{handle}, tolerating
// locale prefixes and nested collection paths.
func handleFromPath(kind core.ResourceKind, u *url.URL) string {
	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	for i := len(segments) - 2; i >= 0; i-- {
		if segments[i] != kind.PathSegment() {
			continue
		}
		handle, err := url.PathUnescape(segments[i+1])
		if err != nil || core.ValidateHandle(handle) != nil {
			return ""
		}
		return handle
	}
	return ""
}

func (c *Client) logResolveFailure(target string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Debug("Handle resolution failed, keeping requested handle",
		zap.String("url", target),
		zap.Error(err))
}

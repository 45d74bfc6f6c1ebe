package handlers

import (
	"context"
	"fmt"

	"github.com/storelens/storelens/internal/core/engine"
)

// DefaultMaxQueued is the queue depth above which a bucket counts as
// backed up.
const DefaultMaxQueued = 100

// RateLimitChecker reports the shared rate limiter as degraded when any
// live bucket has more than MaxQueued requests waiting. A nil or disabled
// registry is healthy.
type RateLimitChecker struct {
	Registry  *engine.Registry
	MaxQueued int
}

func (c RateLimitChecker) CheckHealth(ctx context.Context) error {
	if c.Registry == nil || !c.Registry.Enabled() {
		return nil
	}
	limit := c.MaxQueued
	if limit <= 0 {
		limit = DefaultMaxQueued
	}
	for _, stats := range c.Registry.Snapshot() {
		if stats.Queued > limit {
			return fmt.Errorf("%w: %s has %d queued requests", ErrDegraded, stats.Scope, stats.Queued)
		}
	}
	return nil
}

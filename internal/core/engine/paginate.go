package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/storelens/storelens/internal/core"
)

// MaxPageLimit is the largest page size storefront listings accept.
const MaxPageLimit = 250

// ErrPageUnavailable tells CollectAll to stop and keep what it has.
var ErrPageUnavailable = errors.New("page unavailable")

// PageFunc fetches one page. Returning ErrPageUnavailable ends collection
// without an error; any other error aborts it.
type PageFunc[T any] func(ctx context.Context, page, limit int) ([]T, error)

// CollectAll requests pages 1, 2, ... with MaxPageLimit items each until a
// page comes back empty or short.
func CollectAll[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	all := make([]T, 0)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := fetch(ctx, page, MaxPageLimit)
		if errors.Is(err, ErrPageUnavailable) {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return all, nil
		}

		all = append(all, items...)
		if len(items) < MaxPageLimit {
			return all, nil
		}
	}
}

// ValidatePage rejects page numbers below 1 and limits outside 1..MaxPageLimit.
func ValidatePage(page, limit int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", core.ErrInvalidInput, page)
	}
	if limit < 1 || limit > MaxPageLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d", core.ErrInvalidInput, MaxPageLimit, limit)
	}
	return nil
}

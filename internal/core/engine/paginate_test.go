package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/internal/core"
)

func pages(sizes ...int) (PageFunc[int], *[]int) {
	var requested []int
	return func(ctx context.Context, page, limit int) ([]int, error) {
		requested = append(requested, page)
		if page > len(sizes) {
			return nil, nil
		}
		return make([]int, sizes[page-1]), nil
	}, &requested
}

func TestCollectAllStopsOnShortPage(t *testing.T) {
	fetch, requested := pages(250, 250, 10)

	items, err := CollectAll(context.Background(), fetch)
	require.NoError(t, err)
	require.Len(t, items, 510)
	require.Equal(t, []int{1, 2, 3}, *requested)
}

func TestCollectAllStopsOnEmptyPage(t *testing.T) {
	fetch, requested := pages(250)

	items, err := CollectAll(context.Background(), fetch)
	require.NoError(t, err)
	require.Len(t, items, 250)
	require.Equal(t, []int{1, 2}, *requested)
}

func TestCollectAllEmptyStore(t *testing.T) {
	fetch, requested := pages()

	items, err := CollectAll(context.Background(), fetch)
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
	require.Equal(t, []int{1}, *requested)
}

func TestCollectAllKeepsPartialOnUnavailablePage(t *testing.T) {
	fetch := func(ctx context.Context, page, limit int) ([]string, error) {
		if page == 2 {
			return nil, ErrPageUnavailable
		}
		out := make([]string, limit)
		for i := range out {
			out[i] = "p"
		}
		return out, nil
	}

	items, err := CollectAll(context.Background(), fetch)
	require.NoError(t, err)
	require.Len(t, items, MaxPageLimit)
}

func TestCollectAllPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(ctx context.Context, page, limit int) ([]int, error) {
		if page == 2 {
			return nil, boom
		}
		return make([]int, limit), nil
	}

	items, err := CollectAll(context.Background(), fetch)
	require.ErrorIs(t, err, boom)
	require.Nil(t, items)
}

func TestValidatePage(t *testing.T) {
	require.NoError(t, ValidatePage(1, 1))
	require.NoError(t, ValidatePage(3, MaxPageLimit))
	require.ErrorIs(t, ValidatePage(0, 10), core.ErrInvalidInput)
	require.ErrorIs(t, ValidatePage(1, 0), core.ErrInvalidInput)
	require.ErrorIs(t, ValidatePage(1, MaxPageLimit+1), core.ErrInvalidInput)
}

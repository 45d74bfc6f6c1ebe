package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateHandle(t *testing.T) {
	valid := []string{"summer-tee", "Summer-Tee", "gift_card", "v2.0", "  padded  ", strings.Repeat("a", MaxHandleLength)}
	for _, handle := range valid {
		require.NoError(t, ValidateHandle(handle), handle)
	}

	invalid := []string{"", "   ", "-leading", "with space", "a/b", "q?x=1", "été-2024", "雨", strings.Repeat("a", MaxHandleLength+1)}
	for _, handle := range invalid {
		err := ValidateHandle(handle)
		require.Error(t, err, handle)
		require.True(t, errors.Is(err, ErrInvalidInput), handle)
	}
}

func TestResourceKind(t *testing.T) {
	require.Equal(t, "products", KindProduct.PathSegment())
	require.Equal(t, "collections", KindCollection.PathSegment())
	require.NoError(t, ValidateKind(KindCollection))
	require.ErrorIs(t, ValidateKind(ResourceKind("page")), ErrInvalidInput)
}

func TestRequestErrorMessage(t *testing.T) {
	err := &RequestError{URL: "https://shop.test/products.json", Context: "list products", StatusCode: 500}
	require.Equal(t, "list products: status 500 (https://shop.test/products.json)", err.Error())

	cause := errors.New("connection refused")
	err = &RequestError{URL: "https://shop.test/", Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "connection refused")
}

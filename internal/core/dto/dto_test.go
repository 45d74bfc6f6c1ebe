package dto

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/internal/core"
)

func testBase(t *testing.T) *url.URL {
	t.Helper()
	base, err := url.Parse("https://acme.test")
	require.NoError(t, err)
	return base
}

func TestDecodeProductListing(t *testing.T) {
	payload := `{"products":[{
		"id": 11,
		"title": "Trail Pack",
		"handle": "trail-pack",
		"body_html": "<p>Roomy</p>",
		"vendor": "Acme",
		"product_type": "Bags",
		"tags": ["outdoor", " hiking "],
		"published_at": "2024-03-01T10:00:00-05:00",
		"options": [{"name": "Size", "position": 1, "values": ["S", "L"]}],
		"variants": [
			{"id": 101, "title": "S", "option1": "S", "option2": null, "sku": "TP-S", "price": "49.90", "compare_at_price": null, "available": false},
			{"id": 102, "title": "L", "option1": "L", "sku": "TP-L", "price": "59", "compare_at_price": "65.5", "available": true}
		],
		"images": [{"id": 7, "src": "//cdn.shopify.com/pack.jpg", "width": 800, "height": 600, "position": 1}]
	}]}`

	products, err := DecodeProductListing(strings.NewReader(payload), testBase(t))
	require.NoError(t, err)
	require.Len(t, products, 1)

	want := core.Product{
		ID:          11,
		Handle:      "trail-pack",
		Title:       "Trail Pack",
		Vendor:      "Acme",
		ProductType: "Bags",
		BodyHTML:    "<p>Roomy</p>",
		Tags:        []string{"outdoor", "hiking"},
		Options:     []core.Option{{Name: "Size", Values: []string{"S", "L"}}},
		Variants: []core.Variant{
			{ID: 101, Title: "S", SKU: "TP-S", Price: 4990, Options: []string{"S"}},
			{ID: 102, Title: "L", SKU: "TP-L", Price: 5900, CompareAtPrice: 6550, Available: true, Options: []string{"L"}},
		},
		Images:      []core.Image{{ID: 7, Src: "https://cdn.shopify.com/pack.jpg", Width: 800, Height: 600, Position: 1}},
		Available:   true,
		PriceMin:    4990,
		PriceMax:    5900,
		URL:         "https://acme.test/products/trail-pack",
		PublishedAt: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
	}

	if diff := cmp.Diff(want, products[0], cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Fatalf("product mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeProductListingCommaTags(t *testing.T) {
	products, err := DecodeProductListing(strings.NewReader(`{"products":[{"handle":"a","tags":"red, blue,,"}]}`), testBase(t))
	require.NoError(t, err)
	require.Equal(t, []string{"red", "blue"}, products[0].Tags)
}

func TestDecodeProductJS(t *testing.T) {
	payload := `{
		"id": 11, "title": "Trail Pack", "handle": "trail-pack", "description": "Roomy",
		"vendor": "Acme", "type": "Bags", "tags": ["outdoor"], "available": true,
		"price_min": 4990, "price_max": 5900,
		"options": [{"name": "Size", "values": ["S", "L"]}],
		"variants": [{"id": 101, "title": "S", "price": 4990, "compare_at_price": 5500, "available": true, "options": ["S"]}],
		"images": ["//cdn.shopify.com/pack.jpg"]
	}`

	product, err := DecodeProductJS(strings.NewReader(payload), testBase(t))
	require.NoError(t, err)
	require.Equal(t, "trail-pack", product.Handle)
	require.Equal(t, "Roomy", product.BodyHTML)
	require.Equal(t, int64(4990), product.PriceMin)
	require.Equal(t, []core.Variant{{ID: 101, Title: "S", Price: 4990, CompareAtPrice: 5500, Available: true, Options: []string{"S"}}}, product.Variants)
	require.Equal(t, []core.Image{{Src: "https://cdn.shopify.com/pack.jpg", Position: 1}}, product.Images)
	require.Equal(t, "https://acme.test/products/trail-pack", product.URL)
}

func TestDecodeProductJSRejectsEmpty(t *testing.T) {
	_, err := DecodeProductJS(strings.NewReader(`{}`), testBase(t))
	require.Error(t, err)

	_, err = DecodeProductJS(strings.NewReader(`<html>`), testBase(t))
	require.Error(t, err)
}

func TestDecodeCollections(t *testing.T) {
	listing := `{"collections":[{"id": 5, "title": "Summer", "handle": "summer", "products_count": 12, "image": {"src": "//cdn.shopify.com/summer.jpg", "alt": "Sun"}}, {"id": 6, "title": "Winter", "handle": "winter", "image": null}]}`

	collections, err := DecodeCollectionListing(strings.NewReader(listing), testBase(t))
	require.NoError(t, err)
	require.Len(t, collections, 2)
	require.Equal(t, "https://acme.test/collections/summer", collections[0].URL)
	require.Equal(t, &core.Image{Src: "https://cdn.shopify.com/summer.jpg", Alt: "Sun"}, collections[0].Image)
	require.Nil(t, collections[1].Image)

	single, err := DecodeCollection(strings.NewReader(`{"collection":{"id": 5, "title": "Summer", "handle": "summer"}}`), testBase(t))
	require.NoError(t, err)
	require.Equal(t, "summer", single.Handle)

	_, err = DecodeCollection(strings.NewReader(`{"collection":null}`), testBase(t))
	require.Error(t, err)
}

func TestParseMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"19.99":  1999,
		"5":      500,
		"0.5":    50,
		"12.345": 1234,
		"-3.10":  -310,
		"":       0,
	}
	for input, want := range cases {
		got, err := ParseMinorUnits(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := ParseMinorUnits("abc")
	require.Error(t, err)
}

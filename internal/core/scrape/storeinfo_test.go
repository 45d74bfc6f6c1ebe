package scrape

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const homePage = `<!doctype html>
<html>
<head>
  <title>Acme Outfitters</title>
  <meta property="og:site_name" content="Acme">
  <meta name="description" content="Gear for the outdoors">
  <meta property="og:image" content="//cdn.shopify.com/s/files/logo.png">
  <script>var Shopify = Shopify || {}; Shopify.currency = {"active":"EUR","rate":"1.0"};</script>
</head>
<body>
  <a href="/products/trail-pack">Pack</a>
  <a href="https://acme.test/collections/summer/products/trail-pack?variant=1">Pack again</a>
  <a href="/products/camp%20stove">Stove</a>
  <a href="/collections/summer">Summer</a>
  <a href="/fr/collections/hiver/">Hiver</a>
  <a href="/collections/all">Everything</a>
  <a href="/collections/vendors?q=Acme">Vendor</a>
  <a href="https://other.test/products/not-ours">Elsewhere</a>
  <a href="https://www.instagram.com/acme">Instagram</a>
  <a href="https://x.com/acme">X</a>
  <a href="https://twitter.com/acme-old">Twitter</a>
  <a href="mailto:hello@acme.test?subject=hi">Mail</a>
  <a href="tel:+15550100">Call</a>
  <a href="#top">Top</a>
</body>
</html>`

func TestParseStoreInfo(t *testing.T) {
	base, err := url.Parse("https://acme.test")
	require.NoError(t, err)

	info, err := ParseStoreInfo(base, strings.NewReader(homePage))
	require.NoError(t, err)

	require.Equal(t, "Acme", info.Name)
	require.Equal(t, "Acme Outfitters", info.Title)
	require.Equal(t, "Gear for the outdoors", info.Description)
	require.Equal(t, "https://cdn.shopify.com/s/files/logo.png", info.LogoURL)
	require.Equal(t, "EUR", info.Currency)
	require.Equal(t, []string{"trail-pack"}, info.ProductHandles)
	require.Equal(t, []string{"summer", "hiver"}, info.CollectionHandles)
	require.Equal(t, map[string]string{
		"instagram": "https://www.instagram.com/acme",
		"twitter":   "https://x.com/acme",
	}, info.SocialLinks)
	require.Equal(t, []string{"hello@acme.test"}, info.Emails)
	require.Equal(t, []string{"+15550100"}, info.Phones)
}

func TestParseStoreInfoFallsBackToTitle(t *testing.T) {
	base, err := url.Parse("https://plain.test")
	require.NoError(t, err)

	info, err := ParseStoreInfo(base, strings.NewReader(`<html><head><title> Plain Shop </title></head><body><header><img class="site-logo" src="/logo.svg"></header></body></html>`))
	require.NoError(t, err)

	require.Equal(t, "Plain Shop", info.Name)
	require.Equal(t, "https://plain.test/logo.svg", info.LogoURL)
	require.Empty(t, info.ProductHandles)
	require.Empty(t, info.Currency)
}

func TestParseStoreInfoRequiresBase(t *testing.T) {
	_, err := ParseStoreInfo(nil, strings.NewReader("<html></html>"))
	require.Error(t, err)
}

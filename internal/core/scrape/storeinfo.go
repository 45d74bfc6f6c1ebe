// Package scrape extracts store identity from a storefront home page.
package scrape

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storelens/storelens/internal/core"
)

// RawStoreInfo is what the home page reveals before showcase handles are
// checked for existence.
type RawStoreInfo struct {
	Name              string
	Title             string
	Description       string
	LogoURL           string
	Currency          string
	SocialLinks       map[string]string
	Emails            []string
	Phones            []string
	ProductHandles    []string
	CollectionHandles []string
}

var (
	currencyPattern   = regexp.MustCompile(`Shopify\.currency\s*=\s*\{\s*"active"\s*:\s*"([A-Z]{3})"`)
	productPathRegex  = regexp.MustCompile(`(?:^|/)products/([^/?#]+)/?$`)
	collectionPathRex = regexp.MustCompile(`^(?:/[a-z]{2}(?:-[a-zA-Z]{2})?)?/collections/([^/?#]+)/?$`)

	// Collection routes that are store-wide listings rather than collections.
	reservedCollections = map[string]struct{}{
		"all":     {},
		"vendors": {},
		"types":   {},
	}

	socialHosts = map[string]string{
		"facebook.com":  "facebook",
		"instagram.com": "instagram",
		"twitter.com":   "twitter",
		"x.com":         "twitter",
		"tiktok.com":    "tiktok",
		"youtube.com":   "youtube",
		"pinterest.com": "pinterest",
		"linkedin.com":  "linkedin",
		"threads.net":   "threads",
	}
)

// ParseStoreInfo reads a home page document. base resolves relative links and
// decides which links belong to the store.
func ParseStoreInfo(base *url.URL, r io.Reader) (*RawStoreInfo, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: base url is required", core.ErrInvalidInput)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse store page: %w", err)
	}

	info := &RawStoreInfo{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Name:        metaContent(doc, `meta[property="og:site_name"]`),
		Description: firstNonEmpty(metaContent(doc, `meta[name="description"]`), metaContent(doc, `meta[property="og:description"]`)),
		Currency:    metaContent(doc, `meta[property="og:price:currency"]`),
		SocialLinks: make(map[string]string),
	}
	if info.Name == "" {
		info.Name = info.Title
	}

	if logo := metaContent(doc, `meta[property="og:image"]`); logo != "" {
		info.LogoURL = absoluteURL(base, logo)
	} else if src, ok := doc.Find(`header img[class*="logo"], img[alt*="logo"]`).First().Attr("src"); ok {
		info.LogoURL = absoluteURL(base, src)
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := currencyPattern.FindStringSubmatch(s.Text()); m != nil {
			info.Currency = m[1]
			return false
		}
		return true
	})

	products := newOrderedSet()
	collections := newOrderedSet()
	emails := newOrderedSet()
	phones := newOrderedSet()

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		switch {
		case href == "" || strings.HasPrefix(href, "#"):
			return
		case strings.HasPrefix(strings.ToLower(href), "mailto:"):
			emails.add(strings.SplitN(href[len("mailto:"):], "?", 2)[0])
			return
		case strings.HasPrefix(strings.ToLower(href), "tel:"):
			phones.add(href[len("tel:"):])
			return
		}

		link, err := base.Parse(href)
		if err != nil {
			return
		}

		if platform, ok := socialPlatform(link.Hostname()); ok {
			if _, seen := info.SocialLinks[platform]; !seen {
				info.SocialLinks[platform] = link.String()
			}
			return
		}

		if !sameStore(base, link) {
			return
		}
		if handle := pathHandle(productPathRegex, link.EscapedPath()); handle != "" {
			products.add(handle)
			return
		}
		if handle := pathHandle(collectionPathRex, link.EscapedPath()); handle != "" {
			if _, reserved := reservedCollections[handle]; !reserved {
				collections.add(handle)
			}
		}
	})

	info.ProductHandles = products.values
	info.CollectionHandles = collections.values
	info.Emails = emails.values
	info.Phones = phones.values
	return info, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func absoluteURL(base *url.URL, raw string) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	resolved, err := base.Parse(raw)
	if err != nil {
		return raw
	}
	return resolved.String()
}

func socialPlatform(host string) (string, bool) {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	host = strings.TrimPrefix(host, "m.")
	platform, ok := socialHosts[host]
	return platform, ok
}

func sameStore(base, link *url.URL) bool {
	host := strings.TrimPrefix(strings.ToLower(link.Hostname()), "www.")
	return host == strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.")
}

func pathHandle(pattern *regexp.Regexp, path string) string {
	m := pattern.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	handle, err := url.PathUnescape(m[1])
	if err != nil {
		return ""
	}
	if core.ValidateHandle(handle) != nil {
		return ""
	}
	return handle
}

type orderedSet struct {
	seen   map[string]struct{}
	values []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), values: []string{}}
}

func (s *orderedSet) add(value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if _, ok := s.seen[value]; ok {
		return
	}
	s.seen[value] = struct{}{}
	s.values = append(s.values, value)
}

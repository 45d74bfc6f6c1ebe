// Package storefront is a read-only client for a single Shopify storefront.
// Every request goes through an engine.Fetcher, so retries and rate limits
// apply uniformly; store info and handle existence are cached per client.
package storefront

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"golang.org/x/sync/singleflight"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/engine"
)

// Operation classes used to select rate limit buckets.
const (
	ClassStoreInfo          = "store:info"
	ClassValidateHandle     = "validate:handle"
	ClassResolveHandle      = "resolve:handle"
	ClassProductsList       = "products:list"
	ClassProductsFind       = "products:find"
	ClassCollectionsList    = "collections:list"
	ClassCollectionsFind    = "collections:find"
	ClassCollectionProducts = "collections:products"
)

const (
	DefaultInfoTTL            = 5 * time.Minute
	DefaultValidationTTL      = 5 * time.Minute
	DefaultShowcaseBatchSize  = 10
	DefaultShowcaseBatchPause = 100 * time.Millisecond
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL           string
	Fetcher           *engine.Fetcher
	InfoTTL           time.Duration
	ValidationTTL     time.Duration
	ShowcaseBatchSize int
	// ShowcaseBatchPause separates validation batches; negative disables it.
	ShowcaseBatchPause time.Duration
	Logger             *logging.Logger
	Clock              func() time.Time
}

type cacheEntry[T any] struct {
	value    T
	storedAt time.Time
}

func (e cacheEntry[T]) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.storedAt) < ttl
}

// Client reads one storefront.
type Client struct {
	baseURL       *url.URL
	fetcher       *engine.Fetcher
	infoTTL       time.Duration
	validationTTL time.Duration
	batchSize     int
	batchPause    time.Duration
	logger        *logging.Logger
	clock         func() time.Time

	infoMu    sync.Mutex
	info      *cacheEntry[*core.StoreInfo]
	infoGroup singleflight.Group

	validationMu sync.Mutex
	validation   map[string]cacheEntry[bool]
}

// New returns a client for opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := NormalizeStoreURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = &engine.Fetcher{}
	}

	c := &Client{
		baseURL:       base,
		fetcher:       fetcher,
		infoTTL:       opts.InfoTTL,
		validationTTL: opts.ValidationTTL,
		batchSize:     opts.ShowcaseBatchSize,
		batchPause:    opts.ShowcaseBatchPause,
		logger:        opts.Logger,
		clock:         opts.Clock,
		validation:    make(map[string]cacheEntry[bool]),
	}
	if c.infoTTL <= 0 {
		c.infoTTL = DefaultInfoTTL
	}
	if c.validationTTL <= 0 {
		c.validationTTL = DefaultValidationTTL
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultShowcaseBatchSize
	}
	switch {
	case c.batchPause == 0:
		c.batchPause = DefaultShowcaseBatchPause
	case c.batchPause < 0:
		c.batchPause = 0
	}
	return c, nil
}

// BaseURL returns the normalized store URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Domain returns the store hostname.
func (c *Client) Domain() string {
	return c.baseURL.Hostname()
}

// NormalizeStoreURL accepts a bare domain or URL and returns its origin.
func NormalizeStoreURL(raw string) (*url.URL, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, fmt.Errorf("%w: store url is required", core.ErrInvalidInput)
	}
	if !strings.Contains(value, "://") {
		value = "https://" + value
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("%w: store url %q: %v", core.ErrInvalidInput, raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: store url %q must use http or https", core.ErrInvalidInput, raw)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: store url %q has no host", core.ErrInvalidInput, raw)
	}

	return &url.URL{Scheme: parsed.Scheme, Host: strings.ToLower(parsed.Host)}, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	ref := &url.URL{Path: path}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now().UTC()
}

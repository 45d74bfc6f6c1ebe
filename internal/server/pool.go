package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/engine"
	"github.com/storelens/storelens/internal/core/storefront"
	"github.com/storelens/storelens/internal/metrics"
)

// DefaultMaxStores bounds the pool when PoolOptions.MaxStores is unset.
const DefaultMaxStores = 256

// PoolOptions limits which stores the pool serves and how many clients it
// keeps.
type PoolOptions struct {
	// AllowedStores holds exact hosts or "*." wildcards. Empty allows any
	// store.
	AllowedStores []string
	// MaxStores caps pooled clients; the least recently used is evicted.
	MaxStores int
	// TTL drops a client this long after creation. Zero keeps clients
	// until evicted.
	TTL time.Duration
}

// StorePool keeps one storefront client per store origin. All clients share
// one fetcher, and so one rate limit registry; caches stay per client.
type StorePool struct {
	template storefront.Options
	allowed  []string
	logger   *logging.Logger

	mu      sync.Mutex
	clients *expirable.LRU[string, *storefront.Client]
	closed  bool
}

// NewStorePool returns a pool that creates clients from template. The
// template's BaseURL is ignored.
func NewStorePool(template storefront.Options, opts PoolOptions) *StorePool {
	if template.Fetcher == nil {
		template.Fetcher = &engine.Fetcher{}
	}
	size := opts.MaxStores
	if size <= 0 {
		size = DefaultMaxStores
	}
	return &StorePool{
		template: template,
		allowed:  opts.AllowedStores,
		logger:   template.Logger,
		clients:  expirable.NewLRU[string, *storefront.Client](size, nil, opts.TTL),
	}
}

// Client returns the client for store, creating it on first use. store may
// be a bare domain or a URL; both normalize to the same origin. Stores
// outside the allow list are rejected with core.ErrInvalidInput.
func (p *StorePool) Client(store string) (*storefront.Client, error) {
	origin, err := storefront.NormalizeStoreURL(store)
	if err != nil {
		return nil, err
	}
	if !p.Allowed(origin.Hostname()) {
		return nil, fmt.Errorf("%w: store %q is not served here", core.ErrInvalidInput, origin.Hostname())
	}
	key := origin.String()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, engine.ErrBucketStopped
	}
	if client, ok := p.clients.Get(key); ok {
		return client, nil
	}

	opts := p.template
	opts.BaseURL = key
	client, err := storefront.New(opts)
	if err != nil {
		return nil, err
	}
	if evicted := p.clients.Add(key, client); evicted && p.logger != nil {
		p.logger.Debug("Evicted least recently used store client")
	}
	metrics.SetClientPoolSize(p.clients.Len())

	if p.logger != nil {
		p.logger.Debug("Created storefront client", zap.String("store", key))
	}
	return client, nil
}

// Allowed reports whether host may be served.
func (p *StorePool) Allowed(host string) bool {
	if len(p.allowed) == 0 {
		return true
	}
	for _, pattern := range p.allowed {
		if engine.MatchHost(pattern, host) {
			return true
		}
	}
	return false
}

// Len returns the number of pooled clients.
func (p *StorePool) Len() int {
	return p.clients.Len()
}

// Registry returns the shared rate limit registry, or nil when the fetcher
// has none.
func (p *StorePool) Registry() *engine.Registry {
	return p.template.Fetcher.Limits
}

// CheckHealth reports the pool as unhealthy once it is closed.
func (p *StorePool) CheckHealth(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("store pool closed")
	}
	return nil
}

// Close stops the shared rate limit registry and refuses new clients.
// Queued requests fail with engine.ErrBucketStopped.
func (p *StorePool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.clients.Purge()
	p.Registry().Stop()
}

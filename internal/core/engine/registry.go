package engine

import (
	"context"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// Scope names the key a bucket is resolved by.
type Scope string

// ScopeGlobal is the fallback scope shared by all requests.
const ScopeGlobal Scope = "global"

// HostScope returns the scope for a hostname.
func HostScope(host string) Scope {
	return Scope("host:" + host)
}

// ClassScope returns the scope for an operation class.
func ClassScope(class string) Scope {
	return Scope("class:" + class)
}

// RateLimitConfig is a partial registry configuration.
type RateLimitConfig struct {
	Enabled  *bool
	Global   BucketPatch
	PerHost  map[string]BucketPatch
	PerClass map[string]BucketPatch
}

// ScopeOptions describes a configured scope.
type ScopeOptions struct {
	Scope   Scope         `json:"scope"`
	Options BucketOptions `json:"options"`
}

type hostBucket struct {
	pattern string
	bucket  *TokenBucket
}

// Registry owns every bucket of a process. Buckets resolve by operation
// class, then host, then the global scope. A disabled registry runs tasks
// immediately.
type Registry struct {
	Logger *logging.Logger

	mu           sync.Mutex
	enabled      bool
	global       BucketOptions
	hostOptions  map[string]BucketOptions
	classOptions map[string]BucketOptions

	globalBucket *TokenBucket
	hosts        map[string]*hostBucket
	classes      map[string]*TokenBucket
}

// NewRegistry returns a disabled registry with default global options.
func NewRegistry() *Registry {
	return &Registry{
		global:       DefaultBucketOptions,
		hostOptions:  make(map[string]BucketOptions),
		classOptions: make(map[string]BucketOptions),
		hosts:        make(map[string]*hostBucket),
		classes:      make(map[string]*TokenBucket),
	}
}

// Configure merges cfg into the registry. Existing buckets are reconfigured
// in place.
func (r *Registry) Configure(cfg RateLimitConfig) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.Enabled != nil {
		r.enabled = *cfg.Enabled
	}

	if !cfg.Global.IsZero() {
		r.global = r.global.Apply(cfg.Global)
		if r.globalBucket != nil {
			r.globalBucket.Configure(cfg.Global)
		}
	}

	for pattern, patch := range cfg.PerHost {
		pattern = normalizeHost(pattern)
		if pattern == "" {
			continue
		}
		base, ok := r.hostOptions[pattern]
		if !ok {
			base = DefaultBucketOptions
		}
		r.hostOptions[pattern] = base.Apply(patch)
	}
	if len(cfg.PerHost) > 0 {
		for host, hb := range r.hosts {
			pattern, opts, ok := r.matchHostLocked(host)
			if !ok {
				continue
			}
			hb.pattern = pattern
			hb.bucket.Configure(opts.Patch())
		}
	}

	for class, patch := range cfg.PerClass {
		class = strings.TrimSpace(class)
		if class == "" {
			continue
		}
		base, ok := r.classOptions[class]
		if !ok {
			base = DefaultBucketOptions
		}
		r.classOptions[class] = base.Apply(patch)
		if bucket, ok := r.classes[class]; ok {
			bucket.Configure(patch)
		}
	}
}

// SetEnabled toggles limiting without touching bucket settings.
func (r *Registry) SetEnabled(enabled bool) {
	r.Configure(RateLimitConfig{Enabled: &enabled})
}

// Enabled reports whether tasks go through buckets.
func (r *Registry) Enabled() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Bucket resolves the bucket for an operation class and host, creating it on
// first use. A class without explicit settings falls through to the host,
// and a host without a matching pattern falls through to the global bucket.
func (r *Registry) Bucket(class, host string) (*TokenBucket, Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	class = strings.TrimSpace(class)
	if class != "" {
		if opts, ok := r.classOptions[class]; ok {
			bucket, exists := r.classes[class]
			if !exists {
				bucket = NewTokenBucket(ClassScope(class), opts)
				r.classes[class] = bucket
				r.logCreated(bucket)
			}
			return bucket, bucket.Scope()
		}
	}

	host = normalizeHost(host)
	if host != "" {
		if hb, ok := r.hosts[host]; ok {
			return hb.bucket, hb.bucket.Scope()
		}
		if pattern, opts, ok := r.matchHostLocked(host); ok {
			bucket := NewTokenBucket(HostScope(host), opts)
			r.hosts[host] = &hostBucket{pattern: pattern, bucket: bucket}
			r.logCreated(bucket)
			return bucket, bucket.Scope()
		}
	}

	if r.globalBucket == nil {
		r.globalBucket = NewTokenBucket(ScopeGlobal, r.global)
		r.logCreated(r.globalBucket)
	}
	return r.globalBucket, ScopeGlobal
}

// Schedule runs task through the resolved bucket, or directly when the
// registry is nil or disabled.
func (r *Registry) Schedule(ctx context.Context, class, host string, task func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !r.Enabled() {
		return task(ctx)
	}
	bucket, _ := r.Bucket(class, host)
	return bucket.Schedule(ctx, task)
}

// Do is Schedule for tasks that produce a value.
func Do[T any](ctx context.Context, r *Registry, class, host string, fn func(context.Context) (T, error)) (T, error) {
	var value T
	err := r.Schedule(ctx, class, host, func(ctx context.Context) error {
		var err error
		value, err = fn(ctx)
		return err
	})
	return value, err
}

// Snapshot returns stats for every live bucket ordered by scope.
func (r *Registry) Snapshot() []BucketStats {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	buckets := make([]*TokenBucket, 0, len(r.hosts)+len(r.classes)+1)
	if r.globalBucket != nil {
		buckets = append(buckets, r.globalBucket)
	}
	for _, hb := range r.hosts {
		buckets = append(buckets, hb.bucket)
	}
	for _, bucket := range r.classes {
		buckets = append(buckets, bucket)
	}
	r.mu.Unlock()

	stats := make([]BucketStats, 0, len(buckets))
	for _, bucket := range buckets {
		stats = append(stats, bucket.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Scope < stats[j].Scope })
	return stats
}

// Configured lists the effective options of every configured scope. Host
// entries are keyed by pattern.
func (r *Registry) Configured() []ScopeOptions {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := []ScopeOptions{{Scope: ScopeGlobal, Options: r.global}}
	for pattern, opts := range r.hostOptions {
		out = append(out, ScopeOptions{Scope: HostScope(pattern), Options: opts})
	}
	for class, opts := range r.classOptions {
		out = append(out, ScopeOptions{Scope: ClassScope(class), Options: opts})
	}
	sort.Slice(out[1:], func(i, j int) bool { return out[i+1].Scope < out[j+1].Scope })
	return out
}

// Stop stops every bucket and forgets them. Settings are kept, so later use
// creates fresh buckets.
func (r *Registry) Stop() {
	if r == nil {
		return
	}

	r.mu.Lock()
	var buckets []*TokenBucket
	if r.globalBucket != nil {
		buckets = append(buckets, r.globalBucket)
	}
	for _, hb := range r.hosts {
		buckets = append(buckets, hb.bucket)
	}
	for _, bucket := range r.classes {
		buckets = append(buckets, bucket)
	}
	r.globalBucket = nil
	r.hosts = make(map[string]*hostBucket)
	r.classes = make(map[string]*TokenBucket)
	r.mu.Unlock()

	for _, bucket := range buckets {
		bucket.Stop()
	}
}

// MatchHost reports whether host matches pattern. A pattern is an exact
// host or a "*." wildcard matching any subdomain, but not the bare suffix.
func MatchHost(pattern, host string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	host = strings.ToLower(host)
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return len(host) > len(suffix) && strings.HasSuffix(host, suffix)
	}
	return pattern != "" && pattern == host
}

// matchHostLocked prefers an exact pattern, then the longest wildcard suffix.
func (r *Registry) matchHostLocked(host string) (string, BucketOptions, bool) {
	if opts, ok := r.hostOptions[host]; ok {
		return host, opts, true
	}

	best := ""
	for pattern := range r.hostOptions {
		if strings.HasPrefix(pattern, "*.") && MatchHost(pattern, host) && len(pattern) > len(best) {
			best = pattern
		}
	}
	if best == "" {
		return "", BucketOptions{}, false
	}
	return best, r.hostOptions[best], true
}

func (r *Registry) logCreated(bucket *TokenBucket) {
	if r.Logger == nil {
		return
	}
	opts := bucket.Options()
	r.Logger.Debug("Rate limit bucket created",
		zap.String("scope", string(bucket.Scope())),
		zap.Int("max_requests_per_interval", opts.MaxRequestsPerInterval),
		zap.Duration("interval", opts.Interval),
		zap.Int("max_concurrency", opts.MaxConcurrency))
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func enabledRegistry(t *testing.T, cfg RateLimitConfig) *Registry {
	t.Helper()

	enabled := true
	cfg.Enabled = &enabled
	registry := NewRegistry()
	registry.Configure(cfg)
	t.Cleanup(registry.Stop)
	return registry
}

func TestRegistryResolvesClassThenHostThenGlobal(t *testing.T) {
	registry := enabledRegistry(t, RateLimitConfig{
		PerHost: map[string]BucketPatch{
			"*.example.com":    {MaxRequestsPerInterval: intPtr(7)},
			"shop.example.com": {MaxRequestsPerInterval: intPtr(3)},
		},
		PerClass: map[string]BucketPatch{
			"products:list": {MaxConcurrency: intPtr(1)},
		},
	})

	_, scope := registry.Bucket("products:list", "shop.example.com")
	require.Equal(t, ClassScope("products:list"), scope)

	bucket, scope := registry.Bucket("", "Shop.Example.com:443")
	require.Equal(t, HostScope("shop.example.com"), scope)
	require.Equal(t, 3, bucket.Options().MaxRequestsPerInterval)

	bucket, scope = registry.Bucket("collections:list", "a.b.example.com")
	require.Equal(t, HostScope("a.b.example.com"), scope)
	require.Equal(t, 7, bucket.Options().MaxRequestsPerInterval)

	_, scope = registry.Bucket("", "example.com")
	require.Equal(t, ScopeGlobal, scope)

	_, scope = registry.Bucket("unknown", "other.test")
	require.Equal(t, ScopeGlobal, scope)
}

func TestRegistryReusesBuckets(t *testing.T) {
	registry := enabledRegistry(t, RateLimitConfig{})

	first, _ := registry.Bucket("", "a.test")
	second, _ := registry.Bucket("", "b.test")
	require.Same(t, first, second)
}

func TestRegistryDisabledRunsDirectly(t *testing.T) {
	registry := NewRegistry()
	registry.Configure(RateLimitConfig{Global: BucketPatch{MaxRequestsPerInterval: intPtr(1), Interval: durationPtr(time.Hour)}})

	runs := 0
	for range 5 {
		require.NoError(t, registry.Schedule(context.Background(), "", "shop.test", func(context.Context) error {
			runs++
			return nil
		}))
	}

	require.Equal(t, 5, runs)
	require.False(t, registry.Enabled())
	require.Empty(t, registry.Snapshot())
}

func TestRegistryNilRunsDirectly(t *testing.T) {
	var registry *Registry

	value, err := Do(context.Background(), registry, "", "", func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", value)
}

func TestRegistryConfigureReachesLiveBuckets(t *testing.T) {
	registry := enabledRegistry(t, RateLimitConfig{
		PerClass: map[string]BucketPatch{"store:info": {MaxConcurrency: intPtr(2)}},
	})

	global, _ := registry.Bucket("", "")
	class, _ := registry.Bucket("store:info", "")

	registry.Configure(RateLimitConfig{
		Global:   BucketPatch{MaxRequestsPerInterval: intPtr(20)},
		PerClass: map[string]BucketPatch{"store:info": {Interval: durationPtr(250 * time.Millisecond)}},
	})

	require.Equal(t, 20, global.Options().MaxRequestsPerInterval)
	require.Equal(t, 2, class.Options().MaxConcurrency)
	require.Equal(t, 250*time.Millisecond, class.Options().Interval)
}

func TestRegistryConfiguredListsScopes(t *testing.T) {
	registry := enabledRegistry(t, RateLimitConfig{
		PerHost:  map[string]BucketPatch{"*.myshopify.com": {}},
		PerClass: map[string]BucketPatch{"llm:classify": {MaxConcurrency: intPtr(1)}},
	})

	scopes := registry.Configured()
	require.Len(t, scopes, 3)
	require.Equal(t, ScopeGlobal, scopes[0].Scope)
	require.Equal(t, ClassScope("llm:classify"), scopes[1].Scope)
	require.Equal(t, 1, scopes[1].Options.MaxConcurrency)
	require.Equal(t, HostScope("*.myshopify.com"), scopes[2].Scope)
	require.Equal(t, DefaultBucketOptions, scopes[2].Options)
}

func TestRegistryStopForgetsBuckets(t *testing.T) {
	registry := enabledRegistry(t, RateLimitConfig{})

	require.NoError(t, registry.Schedule(context.Background(), "", "shop.test", func(context.Context) error { return nil }))
	require.Len(t, registry.Snapshot(), 1)

	registry.Stop()
	require.Empty(t, registry.Snapshot())

	require.NoError(t, registry.Schedule(context.Background(), "", "shop.test", func(context.Context) error { return nil }))
}

func TestMatchHost(t *testing.T) {
	require.True(t, MatchHost("shop.example.com", "shop.example.com"))
	require.True(t, MatchHost("Shop.Example.com", "shop.example.com"))
	require.True(t, MatchHost("*.myshopify.com", "acme.myshopify.com"))
	require.True(t, MatchHost("*.myshopify.com", "a.b.myshopify.com"))

	require.False(t, MatchHost("*.myshopify.com", "myshopify.com"))
	require.False(t, MatchHost("*.myshopify.com", "evilmyshopify.com"))
	require.False(t, MatchHost("shop.example.com", "other.example.com"))
	require.False(t, MatchHost("", ""))
}

// Package cache adds a Redis read-aside layer over the endpoint store.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tsvet01/eng-pulse/pkg/push"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or an error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedEndpointStore is a decorator that adds read-aside caching of the
// active-endpoint lists to any EndpointStore. Writes invalidate the
// provider's key so a deactivated or unregistered token stops receiving
// pushes immediately rather than at TTL expiry.
type CachedEndpointStore struct {
	realStore push.EndpointStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedEndpointStore(realStore push.EndpointStore, cache CacheClient, ttl time.Duration) *CachedEndpointStore {
	return &CachedEndpointStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// --- READ PATH (read-aside) ---

func (s *CachedEndpointStore) ListActive(ctx context.Context, provider push.Provider) ([]push.Endpoint, error) {
	key := s.cacheKey(provider)

	var cached []push.Endpoint
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	fresh, err := s.realStore.ListActive(ctx, provider)
	if err != nil {
		return nil, err
	}

	// Fire and forget: caching is an optimization, not a transaction. If
	// Redis is down we just serve from Firestore.
	_ = s.cache.Set(ctx, key, fresh, s.ttl)

	return fresh, nil
}

// --- WRITE PATHS (invalidate-on-write) ---

func (s *CachedEndpointStore) Deactivate(ctx context.Context, provider push.Provider, token string) error {
	if err := s.realStore.Deactivate(ctx, provider, token); err != nil {
		return err
	}
	return s.invalidate(ctx, provider)
}

func (s *CachedEndpointStore) Upsert(ctx context.Context, endpoint push.Endpoint) error {
	if err := s.realStore.Upsert(ctx, endpoint); err != nil {
		return err
	}
	return s.invalidate(ctx, endpoint.Provider)
}

func (s *CachedEndpointStore) Unregister(ctx context.Context, provider push.Provider, token string) error {
	if err := s.realStore.Unregister(ctx, provider, token); err != nil {
		return err
	}
	return s.invalidate(ctx, provider)
}

// --- Helpers ---

func (s *CachedEndpointStore) invalidate(ctx context.Context, provider push.Provider) error {
	return s.cache.Del(ctx, s.cacheKey(provider))
}

func (s *CachedEndpointStore) cacheKey(provider push.Provider) string {
	return fmt.Sprintf("notify:endpoints:%s", provider)
}

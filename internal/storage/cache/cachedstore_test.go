package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tsvet01/eng-pulse/pkg/push"
)

// fakeCache is an in-memory CacheClient that round-trips through JSON the
// way the Redis wrapper does.
type fakeCache struct {
	data map[string][]byte
	gets int
	sets int
	dels int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	c.gets++
	raw, ok := c.data[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.dels++
	delete(c.data, key)
	return nil
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListActive(ctx context.Context, provider push.Provider) ([]push.Endpoint, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]push.Endpoint), args.Error(1)
}

func (m *MockStore) Deactivate(ctx context.Context, provider push.Provider, token string) error {
	return m.Called(ctx, provider, token).Error(0)
}

func (m *MockStore) Upsert(ctx context.Context, endpoint push.Endpoint) error {
	return m.Called(ctx, endpoint).Error(0)
}

func (m *MockStore) Unregister(ctx context.Context, provider push.Provider, token string) error {
	return m.Called(ctx, provider, token).Error(0)
}

func TestCachedListActive(t *testing.T) {
	ctx := context.Background()
	endpoints := []push.Endpoint{{Token: "t1", Provider: push.ProviderFCM, Active: true}}

	t.Run("miss populates, hit skips the real store", func(t *testing.T) {
		store := new(MockStore)
		cache := newFakeCache()
		cached := NewCachedEndpointStore(store, cache, time.Hour)

		store.On("ListActive", mock.Anything, push.ProviderFCM).Return(endpoints, nil).Once()

		first, err := cached.ListActive(ctx, push.ProviderFCM)
		require.NoError(t, err)
		assert.Equal(t, endpoints, first)

		second, err := cached.ListActive(ctx, push.ProviderFCM)
		require.NoError(t, err)
		assert.Equal(t, endpoints, second)

		store.AssertNumberOfCalls(t, "ListActive", 1)
	})

	t.Run("providers have independent keys", func(t *testing.T) {
		store := new(MockStore)
		cache := newFakeCache()
		cached := NewCachedEndpointStore(store, cache, time.Hour)

		store.On("ListActive", mock.Anything, push.ProviderFCM).Return(endpoints, nil).Once()
		store.On("ListActive", mock.Anything, push.ProviderAPNS).Return([]push.Endpoint{}, nil).Once()

		_, err := cached.ListActive(ctx, push.ProviderFCM)
		require.NoError(t, err)
		apns, err := cached.ListActive(ctx, push.ProviderAPNS)
		require.NoError(t, err)

		assert.Empty(t, apns)
		store.AssertExpectations(t)
	})

	t.Run("store error is not cached", func(t *testing.T) {
		store := new(MockStore)
		cache := newFakeCache()
		cached := NewCachedEndpointStore(store, cache, time.Hour)

		store.On("ListActive", mock.Anything, push.ProviderFCM).
			Return(nil, errors.New("firestore unavailable")).Once()
		store.On("ListActive", mock.Anything, push.ProviderFCM).Return(endpoints, nil).Once()

		_, err := cached.ListActive(ctx, push.ProviderFCM)
		require.Error(t, err)

		got, err := cached.ListActive(ctx, push.ProviderFCM)
		require.NoError(t, err)
		assert.Equal(t, endpoints, got)
	})
}

func TestWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	endpoints := []push.Endpoint{{Token: "t1", Provider: push.ProviderAPNS, Active: true}}

	store := new(MockStore)
	cache := newFakeCache()
	cached := NewCachedEndpointStore(store, cache, time.Hour)

	store.On("ListActive", mock.Anything, push.ProviderAPNS).Return(endpoints, nil)
	store.On("Deactivate", mock.Anything, push.ProviderAPNS, "t1").Return(nil)

	_, err := cached.ListActive(ctx, push.ProviderAPNS)
	require.NoError(t, err)

	require.NoError(t, cached.Deactivate(ctx, push.ProviderAPNS, "t1"))

	// The cache must have been cleared, forcing the next read through.
	_, err = cached.ListActive(ctx, push.ProviderAPNS)
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "ListActive", 2)
}

func TestWriteFailureSkipsInvalidation(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	cache := newFakeCache()
	cached := NewCachedEndpointStore(store, cache, time.Hour)

	store.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("write failed"))

	err := cached.Upsert(ctx, push.Endpoint{Token: "t1", Provider: push.ProviderFCM})

	require.Error(t, err)
	assert.Zero(t, cache.dels)
}

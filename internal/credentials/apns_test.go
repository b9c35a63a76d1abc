package credentials

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves secrets from a map and counts every fetch.
type fakeFetcher struct {
	secrets map[string]string
	calls   int
}

func (f *fakeFetcher) FetchSecret(_ context.Context, name string) (string, error) {
	f.calls++
	v, ok := f.secrets[name]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func testP8PEM(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func newTestCache(fetcher SecretFetcher) *APNSCache {
	return NewAPNSCache(fetcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAPNSCache_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("caches all three secrets after first fetch", func(t *testing.T) {
		fetcher := &fakeFetcher{secrets: map[string]string{
			SecretAPNSAuthKey: testP8PEM(t),
			SecretAPNSKeyID:   "KEY123\n",
			SecretAPNSTeamID:  " TEAM456 ",
		}}
		cache := newTestCache(fetcher)

		creds, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "KEY123", creds.KeyID)
		assert.Equal(t, "TEAM456", creds.TeamID)
		assert.NotNil(t, creds.AuthKey)
		assert.Equal(t, 3, fetcher.calls)

		again, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.Same(t, creds, again)
		assert.Equal(t, 3, fetcher.calls, "second Get must not touch the secret store")
	})

	t.Run("missing secret is not cached", func(t *testing.T) {
		fetcher := &fakeFetcher{secrets: map[string]string{
			SecretAPNSAuthKey: testP8PEM(t),
			// key id missing
			SecretAPNSTeamID: "TEAM456",
		}}
		cache := newTestCache(fetcher)

		_, err := cache.Get(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSecretNotFound))

		// The next call retries from scratch.
		fetcher.secrets[SecretAPNSKeyID] = "KEY123"
		creds, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "KEY123", creds.KeyID)
	})

	t.Run("unparseable key is not cached", func(t *testing.T) {
		fetcher := &fakeFetcher{secrets: map[string]string{
			SecretAPNSAuthKey: "not a pem",
			SecretAPNSKeyID:   "KEY123",
			SecretAPNSTeamID:  "TEAM456",
		}}
		cache := newTestCache(fetcher)

		_, err := cache.Get(ctx)
		require.Error(t, err)

		fetcher.secrets[SecretAPNSAuthKey] = testP8PEM(t)
		_, err = cache.Get(ctx)
		require.NoError(t, err)
	})
}

func TestAPNSCache_Reset(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{secrets: map[string]string{
		SecretAPNSAuthKey: testP8PEM(t),
		SecretAPNSKeyID:   "KEY123",
		SecretAPNSTeamID:  "TEAM456",
	}}
	cache := newTestCache(fetcher)

	_, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, fetcher.calls)

	cache.Reset()

	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, fetcher.calls, "Reset must force a re-fetch")
}

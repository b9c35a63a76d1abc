package credentials

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sideshow/apns2/token"
)

// Logical secret names for the APNs signing material.
const (
	SecretAPNSAuthKey = "apns-auth-key"
	SecretAPNSKeyID   = "apns-key-id"
	SecretAPNSTeamID  = "apns-team-id"
)

// APNSCredentials is the signing tuple for APNs token-based authentication.
type APNSCredentials struct {
	AuthKey *ecdsa.PrivateKey
	KeyID   string
	TeamID  string
}

// APNSCache loads the APNs signing credentials once and keeps them for the
// process lifetime. Caching is all-or-nothing: if any of the three fetches
// (or the key parse) fails, nothing is cached and the next Get retries from
// scratch. The mutex is held across the fetch so concurrent first access
// results in a single secret-store round trip.
type APNSCache struct {
	fetcher SecretFetcher
	logger  *slog.Logger

	mu     sync.Mutex
	cached *APNSCredentials
}

func NewAPNSCache(fetcher SecretFetcher, logger *slog.Logger) *APNSCache {
	return &APNSCache{
		fetcher: fetcher,
		logger:  logger.With("component", "APNSCache"),
	}
}

// Get returns the cached credentials, fetching and parsing them on first use.
func (c *APNSCache) Get(ctx context.Context) (*APNSCredentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil {
		return c.cached, nil
	}

	keyPEM, err := c.fetcher.FetchSecret(ctx, SecretAPNSAuthKey)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", SecretAPNSAuthKey, err)
	}
	keyID, err := c.fetcher.FetchSecret(ctx, SecretAPNSKeyID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", SecretAPNSKeyID, err)
	}
	teamID, err := c.fetcher.FetchSecret(ctx, SecretAPNSTeamID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", SecretAPNSTeamID, err)
	}

	authKey, err := token.AuthKeyFromBytes([]byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse APNs P8 key: %w", err)
	}

	c.cached = &APNSCredentials{
		AuthKey: authKey,
		KeyID:   strings.TrimSpace(keyID),
		TeamID:  strings.TrimSpace(teamID),
	}
	c.logger.Info("APNs credentials loaded", "key_id", c.cached.KeyID)
	return c.cached, nil
}

// Reset clears the cache so the next Get re-fetches from the secret store.
// Needed for credential rotation without a process restart.
func (c *APNSCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}

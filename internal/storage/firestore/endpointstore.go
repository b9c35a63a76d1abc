// Package firestore implements the endpoint store on Google Cloud Firestore.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tsvet01/eng-pulse/pkg/push"
)

// Per-provider collections. The document id is the device token itself, so
// re-registration is a natural upsert.
const (
	FCMTokensCollection  = "fcm_tokens"
	APNSTokensCollection = "apns_tokens"
)

// endpointDoc is the stored representation of a registration record.
type endpointDoc struct {
	Token          string     `firestore:"token"`
	Platform       string     `firestore:"platform,omitempty"`
	AppVersion     string     `firestore:"app_version,omitempty"`
	Sandbox        bool       `firestore:"sandbox"`
	Active         bool       `firestore:"active"`
	RegisteredAt   time.Time  `firestore:"registered_at"`
	LastSeen       time.Time  `firestore:"last_seen"`
	UnregisteredAt *time.Time `firestore:"unregistered_at,omitempty"`
}

// EndpointStore implements push.EndpointStore using Firestore.
type EndpointStore struct {
	client *firestore.Client
	now    func() time.Time
}

func NewEndpointStore(client *firestore.Client) *EndpointStore {
	return &EndpointStore{client: client, now: time.Now}
}

func collectionFor(provider push.Provider) (string, error) {
	switch provider {
	case push.ProviderFCM:
		return FCMTokensCollection, nil
	case push.ProviderAPNS:
		return APNSTokensCollection, nil
	}
	return "", fmt.Errorf("unknown provider %q", provider)
}

// ListActive returns every endpoint with active=true. Documents without a
// token (or that fail to decode) are skipped rather than failing the batch.
func (s *EndpointStore) ListActive(ctx context.Context, provider push.Provider) ([]push.Endpoint, error) {
	collection, err := collectionFor(provider)
	if err != nil {
		return nil, err
	}

	iter := s.client.Collection(collection).Where("active", "==", true).Documents(ctx)
	defer iter.Stop()

	var endpoints []push.Endpoint
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record endpointDoc
		if err := doc.DataTo(&record); err != nil {
			continue
		}
		if record.Token == "" {
			continue
		}

		endpoints = append(endpoints, push.Endpoint{
			Token:          record.Token,
			Provider:       provider,
			Platform:       record.Platform,
			AppVersion:     record.AppVersion,
			Sandbox:        record.Sandbox,
			Active:         record.Active,
			RegisteredAt:   record.RegisteredAt,
			LastSeen:       record.LastSeen,
			UnregisteredAt: record.UnregisteredAt,
		})
	}

	return endpoints, nil
}

// Deactivate flips one endpoint's active flag. An already-deleted document
// counts as success: the endpoint is gone either way.
func (s *EndpointStore) Deactivate(ctx context.Context, provider push.Provider, token string) error {
	collection, err := collectionFor(provider)
	if err != nil {
		return err
	}

	_, err = s.client.Collection(collection).Doc(token).Update(ctx, []firestore.Update{
		{Path: "active", Value: false},
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("deactivate %s endpoint: %w", provider, err)
	}
	return nil
}

// Upsert writes the full registration record, refreshing last_seen,
// re-activating the token and clearing any earlier unregistration stamp.
func (s *EndpointStore) Upsert(ctx context.Context, endpoint push.Endpoint) error {
	collection, err := collectionFor(endpoint.Provider)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	record := endpointDoc{
		Token:        endpoint.Token,
		Platform:     endpoint.Platform,
		AppVersion:   endpoint.AppVersion,
		Sandbox:      endpoint.Sandbox,
		Active:       true,
		RegisteredAt: now,
		LastSeen:     now,
	}

	_, err = s.client.Collection(collection).Doc(endpoint.Token).Set(ctx, record)
	if err != nil {
		return fmt.Errorf("upsert %s endpoint: %w", endpoint.Provider, err)
	}
	return nil
}

// Unregister soft-deletes a registration. Merge-set rather than update so an
// unknown token still succeeds.
func (s *EndpointStore) Unregister(ctx context.Context, provider push.Provider, token string) error {
	collection, err := collectionFor(provider)
	if err != nil {
		return err
	}

	_, err = s.client.Collection(collection).Doc(token).Set(ctx, map[string]any{
		"active":          false,
		"unregistered_at": s.now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("unregister %s endpoint: %w", provider, err)
	}
	return nil
}

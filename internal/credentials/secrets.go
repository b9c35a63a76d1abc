// Package credentials resolves and caches the secret material needed to
// authenticate outbound push requests.
package credentials

import (
	"context"
	"errors"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrSecretNotFound is returned when the secret store has no value under the
// requested logical name.
var ErrSecretNotFound = errors.New("secret not found")

// SecretFetcher retrieves long-lived secret material by logical name.
type SecretFetcher interface {
	FetchSecret(ctx context.Context, name string) (string, error)
}

// SecretManagerFetcher reads secrets from Google Secret Manager, always at
// the latest version.
type SecretManagerFetcher struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerFetcher(client *secretmanager.Client, projectID string) *SecretManagerFetcher {
	return &SecretManagerFetcher{client: client, projectID: projectID}
}

func (f *SecretManagerFetcher) FetchSecret(ctx context.Context, name string) (string, error) {
	path := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", f.projectID, name)
	result, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: path,
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}

package credentials

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
)

// FCMScope is the OAuth2 scope required to call the FCM HTTP v1 send API.
const FCMScope = "https://www.googleapis.com/auth/firebase.messaging"

// AccessTokenSource yields a short-lived bearer token for the FCM v1 API.
// Tokens expire quickly, so callers request a fresh one per dispatch cycle
// rather than caching.
type AccessTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// GoogleTokenSource exchanges application-default credentials for a bearer
// token scoped to messaging sends.
type GoogleTokenSource struct{}

func NewGoogleTokenSource() *GoogleTokenSource {
	return &GoogleTokenSource{}
}

func (s *GoogleTokenSource) AccessToken(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, FCMScope)
	if err != nil {
		return "", fmt.Errorf("find default credentials: %w", err)
	}
	tok, err := creds.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("exchange access token: %w", err)
	}
	return tok.AccessToken, nil
}

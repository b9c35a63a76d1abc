// Package apns implements the single-endpoint sender for the Apple Push
// Notification service (HTTP/2, token-based authentication).
package apns

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"github.com/tsvet01/eng-pulse/internal/credentials"
	"github.com/tsvet01/eng-pulse/pkg/push"
)

// requestTimeout bounds a single push so one hung endpoint cannot stall the
// rest of a dispatch cycle.
const requestTimeout = 10 * time.Second

// APNSClient is the subset of apns2.Client we use. It allows mocking for
// unit tests.
type APNSClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// Sender implements push.Sender for APNs. It holds one client per signing
// context (production and sandbox) and selects per endpoint, so a mixed
// batch needs no re-authorization.
type Sender struct {
	creds  *credentials.APNSCache
	topic  string // the app bundle id, e.g. org.tsvetkov.EngPulseSwift
	logger *slog.Logger

	mu         sync.Mutex
	production APNSClient
	sandbox    APNSClient
}

func NewSender(creds *credentials.APNSCache, bundleID string, logger *slog.Logger) *Sender {
	return &Sender{
		creds:  creds,
		topic:  bundleID,
		logger: logger.With("component", "APNSSender"),
	}
}

func (s *Sender) Provider() push.Provider { return push.ProviderAPNS }

// Authorize builds the signed-token clients for one dispatch cycle. The
// signing key is cached process-wide; apns2 regenerates the short-lived JWT
// (iss=team id, iat=now, ES256, kid in the header) as it expires.
func (s *Sender) Authorize(ctx context.Context) error {
	creds, err := s.creds.Get(ctx)
	if err != nil {
		return fmt.Errorf("apns credentials unavailable: %w", err)
	}

	tok := &token.Token{
		AuthKey: creds.AuthKey,
		KeyID:   creds.KeyID,
		TeamID:  creds.TeamID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.production = newClient(tok, false)
	s.sandbox = newClient(tok, true)
	return nil
}

func newClient(tok *token.Token, sandbox bool) *apns2.Client {
	client := apns2.NewTokenClient(tok)
	if sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}
	client.HTTPClient.Timeout = requestTimeout
	return client
}

// Send delivers one alert push. HTTP 200 is success; any other status yields
// the provider's structured reason (falling back to "HTTP {status}" when the
// body carries none), and transport errors are reported as failures with the
// error text — never propagated.
func (s *Sender) Send(ctx context.Context, endpoint push.Endpoint, n push.Notification) push.SendResult {
	client := s.clientFor(endpoint)
	if client == nil {
		return push.SendResult{Reason: "sender not authorized"}
	}

	body := payload.NewPayload().
		AlertTitle(n.Title).
		AlertBody(n.Body).
		Sound("default").
		Badge(1).
		Custom("article_url", n.ArticleURL)

	notification := &apns2.Notification{
		DeviceToken: endpoint.Token,
		Topic:       s.topic,
		Payload:     body,
		PushType:    apns2.PushTypeAlert,
		Priority:    apns2.PriorityHigh,
	}

	res, err := client.PushWithContext(ctx, notification)
	if err != nil {
		return push.SendResult{Reason: err.Error()}
	}
	if res.Sent() {
		return push.SendResult{OK: true}
	}

	reason := res.Reason
	if reason == "" {
		reason = fmt.Sprintf("HTTP %d", res.StatusCode)
	}
	return push.SendResult{Reason: reason}
}

func (s *Sender) clientFor(endpoint push.Endpoint) APNSClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if endpoint.Sandbox {
		return s.sandbox
	}
	return s.production
}

// Package fcm implements the single-endpoint sender for Firebase Cloud
// Messaging over the HTTP v1 API.
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tsvet01/eng-pulse/internal/credentials"
	"github.com/tsvet01/eng-pulse/pkg/push"
)

const (
	// DefaultEndpoint is the FCM HTTP v1 API base.
	DefaultEndpoint = "https://fcm.googleapis.com"

	requestTimeout = 10 * time.Second

	// clickAction tells the Flutter client how to route the tap.
	clickAction = "FLUTTER_NOTIFICATION_CLICK"
)

// message mirrors the v1 send request envelope.
type message struct {
	Message struct {
		Token        string            `json:"token"`
		Notification map[string]string `json:"notification"`
		Data         map[string]string `json:"data"`
	} `json:"message"`
}

// Sender implements push.Sender for FCM. Authorization is a fresh bearer
// token per dispatch cycle: the exchange is cheap relative to the
// per-endpoint sends and the tokens expire quickly.
type Sender struct {
	tokens    credentials.AccessTokenSource
	projectID string
	endpoint  string
	client    *http.Client
	logger    *slog.Logger

	mu     sync.Mutex
	bearer string
}

func NewSender(tokens credentials.AccessTokenSource, projectID string, logger *slog.Logger) *Sender {
	return &Sender{
		tokens:    tokens,
		projectID: projectID,
		endpoint:  DefaultEndpoint,
		client:    &http.Client{Timeout: requestTimeout},
		logger:    logger.With("component", "FCMSender"),
	}
}

func (s *Sender) Provider() push.Provider { return push.ProviderFCM }

func (s *Sender) Authorize(ctx context.Context) error {
	bearer, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("fcm credentials unavailable: %w", err)
	}
	s.mu.Lock()
	s.bearer = bearer
	s.mu.Unlock()
	return nil
}

// Send posts one message to the v1 send endpoint. HTTP 200 is success;
// anything else fails with the raw response text as the reason — FCM's
// failure taxonomy is loose, so the dispatcher classifies by substring.
func (s *Sender) Send(ctx context.Context, endpoint push.Endpoint, n push.Notification) push.SendResult {
	s.mu.Lock()
	bearer := s.bearer
	s.mu.Unlock()
	if bearer == "" {
		return push.SendResult{Reason: "sender not authorized"}
	}

	var msg message
	msg.Message.Token = endpoint.Token
	msg.Message.Notification = map[string]string{
		"title": n.Title,
		"body":  n.Body,
	}
	msg.Message.Data = map[string]string{
		"article_url":  n.ArticleURL,
		"click_action": clickAction,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return push.SendResult{Reason: err.Error()}
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", s.endpoint, s.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return push.SendResult{Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json; UTF-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return push.SendResult{Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusOK {
		return push.SendResult{OK: true}
	}
	reason := string(respBody)
	if reason == "" {
		reason = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return push.SendResult{Reason: reason}
}

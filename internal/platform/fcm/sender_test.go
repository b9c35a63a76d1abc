package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsvet01/eng-pulse/pkg/push"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) AccessToken(context.Context) (string, error) {
	return s.token, s.err
}

func newTestSender(t *testing.T, handler http.HandlerFunc) *Sender {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sender := NewSender(staticTokens{token: "test-bearer"}, "tsvet01",
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	sender.endpoint = server.URL
	require.NoError(t, sender.Authorize(context.Background()))
	return sender
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	endpoint := push.Endpoint{Token: "device-token-1", Provider: push.ProviderFCM}
	n := push.Notification{
		Title:      "My Title",
		Body:       "Body text",
		ArticleURL: "https://storage.googleapis.com/b/summaries/2026-08-30.md",
	}

	t.Run("sends the v1 envelope with bearer auth", func(t *testing.T) {
		var got map[string]any
		sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/projects/tsvet01/messages:send", r.URL.Path)
			assert.Equal(t, "Bearer test-bearer", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		})

		res := sender.Send(ctx, endpoint, n)

		require.True(t, res.OK)
		msg := got["message"].(map[string]any)
		assert.Equal(t, "device-token-1", msg["token"])
		notification := msg["notification"].(map[string]any)
		assert.Equal(t, "My Title", notification["title"])
		assert.Equal(t, "Body text", notification["body"])
		data := msg["data"].(map[string]any)
		assert.Equal(t, n.ArticleURL, data["article_url"])
		assert.Equal(t, "FLUTTER_NOTIFICATION_CLICK", data["click_action"])
	})

	t.Run("non-200 fails with the raw response text", func(t *testing.T) {
		sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"status":"NOT_FOUND","message":"Requested entity was not found. UNREGISTERED"}}`))
		})

		res := sender.Send(ctx, endpoint, n)

		require.False(t, res.OK)
		assert.Contains(t, res.Reason, "UNREGISTERED")
	})

	t.Run("empty error body falls back to HTTP status", func(t *testing.T) {
		sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		res := sender.Send(ctx, endpoint, n)

		require.False(t, res.OK)
		assert.Equal(t, "HTTP 500", res.Reason)
	})

	t.Run("unauthorized sender fails without sending", func(t *testing.T) {
		sender := NewSender(staticTokens{token: "unused"}, "tsvet01",
			slog.New(slog.NewTextHandler(io.Discard, nil)))

		res := sender.Send(ctx, endpoint, n)

		require.False(t, res.OK)
		assert.Equal(t, "sender not authorized", res.Reason)
	})
}

func TestAuthorize(t *testing.T) {
	sender := NewSender(staticTokens{err: errors.New("no ambient credentials")}, "tsvet01",
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := sender.Authorize(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fcm credentials unavailable")
}

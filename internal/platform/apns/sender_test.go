package apns

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tsvet01/eng-pulse/pkg/push"
)

type MockAPNSClient struct {
	mock.Mock
}

func (m *MockAPNSClient) PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apns2.Response), args.Error(1)
}

func newTestSender(production, sandbox APNSClient) *Sender {
	return &Sender{
		topic:      "org.tsvetkov.EngPulseSwift",
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		production: production,
		sandbox:    sandbox,
	}
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	n := push.Notification{
		Title:      "My Title",
		Body:       "Body text",
		ArticleURL: "https://storage.googleapis.com/b/summaries/2026-08-30.md",
	}
	endpoint := push.Endpoint{Token: "abc123", Provider: push.ProviderAPNS}

	t.Run("HTTP 200 is success", func(t *testing.T) {
		client := new(MockAPNSClient)
		sender := newTestSender(client, nil)

		client.On("PushWithContext", mock.Anything, mock.MatchedBy(func(pn *apns2.Notification) bool {
			return pn.DeviceToken == "abc123" &&
				pn.Topic == "org.tsvetkov.EngPulseSwift" &&
				pn.PushType == apns2.PushTypeAlert &&
				pn.Priority == apns2.PriorityHigh
		})).Return(&apns2.Response{StatusCode: http.StatusOK}, nil)

		res := sender.Send(ctx, endpoint, n)

		assert.True(t, res.OK)
		assert.Empty(t, res.Reason)
		client.AssertExpectations(t)
	})

	t.Run("provider reason is passed through", func(t *testing.T) {
		client := new(MockAPNSClient)
		sender := newTestSender(client, nil)

		client.On("PushWithContext", mock.Anything, mock.Anything).Return(&apns2.Response{
			StatusCode: http.StatusGone,
			Reason:     apns2.ReasonUnregistered,
		}, nil)

		res := sender.Send(ctx, endpoint, n)

		require.False(t, res.OK)
		assert.Equal(t, "Unregistered", res.Reason)
	})

	t.Run("empty reason falls back to HTTP status", func(t *testing.T) {
		client := new(MockAPNSClient)
		sender := newTestSender(client, nil)

		client.On("PushWithContext", mock.Anything, mock.Anything).Return(&apns2.Response{
			StatusCode: http.StatusServiceUnavailable,
		}, nil)

		res := sender.Send(ctx, endpoint, n)

		require.False(t, res.OK)
		assert.Equal(t, "HTTP 503", res.Reason)
	})

	t.Run("transport error becomes a failure reason", func(t *testing.T) {
		client := new(MockAPNSClient)
		sender := newTestSender(client, nil)

		client.On("PushWithContext", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		res := sender.Send(ctx, endpoint, n)

		require.False(t, res.OK)
		assert.Equal(t, "connection refused", res.Reason)
	})

	t.Run("sandbox endpoints use the sandbox client", func(t *testing.T) {
		production := new(MockAPNSClient)
		sandbox := new(MockAPNSClient)
		sender := newTestSender(production, sandbox)

		sandbox.On("PushWithContext", mock.Anything, mock.Anything).Return(&apns2.Response{StatusCode: http.StatusOK}, nil)

		res := sender.Send(ctx, push.Endpoint{Token: "abc123", Sandbox: true}, n)

		assert.True(t, res.OK)
		sandbox.AssertExpectations(t)
		production.AssertNotCalled(t, "PushWithContext", mock.Anything, mock.Anything)
	})

	t.Run("unauthorized sender fails without sending", func(t *testing.T) {
		sender := newTestSender(nil, nil)

		res := sender.Send(ctx, endpoint, n)

		require.False(t, res.OK)
		assert.Equal(t, "sender not authorized", res.Reason)
	})
}

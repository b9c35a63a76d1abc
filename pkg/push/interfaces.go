package push

import "context"

// Sender delivers one notification to one endpoint under a specific
// provider's authentication and transport requirements.
type Sender interface {
	// Provider names the delivery service this sender speaks to.
	Provider() Provider

	// Authorize resolves the credentials needed for one dispatch cycle.
	// An error here means the whole cycle for this provider should be
	// skipped, not crashed.
	Authorize(ctx context.Context) error

	// Send delivers the notification to a single endpoint. It never returns
	// an error: transport failures and provider rejections are folded into
	// the SendResult so a hung or broken endpoint cannot abort a batch.
	Send(ctx context.Context, endpoint Endpoint, n Notification) SendResult
}

// EndpointStore manages the registered device endpoints for both providers.
type EndpointStore interface {
	// ListActive returns every endpoint for the provider with active=true.
	ListActive(ctx context.Context, provider Provider) ([]Endpoint, error)

	// Deactivate flips one endpoint's active flag to false. Deactivation is
	// monotonic; only a fresh registration re-activates a token.
	Deactivate(ctx context.Context, provider Provider, token string) error

	// Upsert creates or refreshes a registration record.
	Upsert(ctx context.Context, endpoint Endpoint) error

	// Unregister soft-deletes a registration (active=false plus an
	// unregistered_at stamp). It is idempotent: unregistering an unknown
	// token succeeds.
	Unregister(ctx context.Context, provider Provider, token string) error
}

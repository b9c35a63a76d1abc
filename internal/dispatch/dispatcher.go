// Package dispatch contains the fan-out engine: one dispatch cycle pushes a
// notification to every active endpoint of a provider and retires endpoints
// the provider reports as permanently dead.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tsvet01/eng-pulse/pkg/push"
)

// apnsPermanentReasons are the APNs rejection reasons that mean a token will
// never work again.
var apnsPermanentReasons = map[string]struct{}{
	"BadDeviceToken": {},
	"Unregistered":   {},
	"ExpiredToken":   {},
}

// permanentFailure reports whether reason means the endpoint should be
// retired. The two providers expose different, unstructured vocabularies for
// "this token is dead": APNs a structured reason field matched exactly, FCM
// free-form response text matched by substring. Kept as literal string
// matching on purpose; the taxonomies were never meant to interoperate.
func permanentFailure(provider push.Provider, reason string) bool {
	switch provider {
	case push.ProviderAPNS:
		_, ok := apnsPermanentReasons[reason]
		return ok
	case push.ProviderFCM:
		return strings.Contains(reason, "UNREGISTERED") ||
			strings.Contains(reason, "INVALID_ARGUMENT")
	}
	return false
}

// Dispatcher orchestrates dispatch cycles across both providers. Its
// contract is "always produce a count": nothing raised inside a cycle is
// allowed past its boundary, because cycles usually run unattended off a
// storage trigger with no human watching for an exception.
type Dispatcher struct {
	store   push.EndpointStore
	senders map[push.Provider]push.Sender
	logger  *slog.Logger
}

func New(store push.EndpointStore, logger *slog.Logger, senders ...push.Sender) *Dispatcher {
	byProvider := make(map[push.Provider]push.Sender, len(senders))
	for _, s := range senders {
		byProvider[s.Provider()] = s
	}
	return &Dispatcher{
		store:   store,
		senders: byProvider,
		logger:  logger.With("component", "Dispatcher"),
	}
}

// Dispatch runs one full cycle for a provider and returns the number of
// successful sends. Credential or store failures skip the cycle with a zero
// count; per-endpoint failures are classified and, when permanent, retire
// the endpoint best-effort.
func (d *Dispatcher) Dispatch(ctx context.Context, provider push.Provider, n push.Notification) int {
	logger := d.logger.With("provider", string(provider), "cycle_id", uuid.NewString())

	sender, ok := d.senders[provider]
	if !ok {
		logger.Error("No sender configured for provider")
		return 0
	}

	if err := sender.Authorize(ctx); err != nil {
		logger.Error("Credentials unavailable, skipping cycle", "err", err)
		return 0
	}

	endpoints, err := d.store.ListActive(ctx, provider)
	if err != nil {
		logger.Error("Failed to list active endpoints", "err", err)
		return 0
	}
	if len(endpoints) == 0 {
		logger.Info("No active endpoints")
		return 0
	}

	logger.Info("Sending notifications", "device_count", len(endpoints))
	successCount := 0

	for _, endpoint := range endpoints {
		res := sender.Send(ctx, endpoint, n)
		if res.OK {
			successCount++
			continue
		}

		logger.Error("Send failed", "reason", res.Reason)
		if !permanentFailure(provider, res.Reason) {
			// Transient or unknown: leave the endpoint active, the next
			// cycle retries naturally.
			continue
		}

		if err := d.store.Deactivate(ctx, provider, endpoint.Token); err != nil {
			// A store outage must not cascade into dispatch failure.
			logger.Error("Failed to deactivate endpoint", "err", err)
		} else {
			logger.Info("Marked endpoint as inactive")
		}
	}

	logger.Info("Dispatch cycle complete", "success", successCount, "total", len(endpoints))
	return successCount
}

// DispatchAll runs one cycle per configured provider concurrently. The
// cycles are fully independent; each provider's count stands alone.
func (d *Dispatcher) DispatchAll(ctx context.Context, n push.Notification) map[push.Provider]int {
	counts := make(map[push.Provider]int, len(d.senders))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for provider := range d.senders {
		wg.Add(1)
		go func(p push.Provider) {
			defer wg.Done()
			count := d.Dispatch(ctx, p, n)
			mu.Lock()
			counts[p] = count
			mu.Unlock()
		}(provider)
	}
	wg.Wait()

	return counts
}

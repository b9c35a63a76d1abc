// Package pipeline turns storage-write events into notification cycles:
// fetch the new summary, email it, and fan the push notification out to both
// providers.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tsvet01/eng-pulse/internal/compose"
	"github.com/tsvet01/eng-pulse/pkg/push"
)

// StorageEvent is the subset of a GCS object notification we act on.
type StorageEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ObjectFetcher reads the triggering object's contents.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, object string) (string, error)
}

// Mailer delivers the rendered summary email.
type Mailer interface {
	SendSummary(ctx context.Context, objectName, content string) error
}

// Dispatcher fans a notification out across all providers.
type Dispatcher interface {
	DispatchAll(ctx context.Context, n push.Notification) map[push.Provider]int
}

// Processor handles one storage event end to end. Only the object fetch is
// allowed to fail the event (so the subscription redelivers); everything
// downstream is best-effort, per the dispatcher's always-produce-a-count
// contract.
type Processor struct {
	fetcher    ObjectFetcher
	mailer     Mailer
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewProcessor(fetcher ObjectFetcher, mailer Mailer, dispatcher Dispatcher, logger *slog.Logger) *Processor {
	return &Processor{
		fetcher:    fetcher,
		mailer:     mailer,
		dispatcher: dispatcher,
		logger:     logger.With("component", "SummaryProcessor"),
	}
}

// HandleEvent processes one storage-write event.
func (p *Processor) HandleEvent(ctx context.Context, event StorageEvent) error {
	logger := p.logger.With("bucket", event.Bucket, "file", event.Name)

	if !compose.IsSummaryObject(event.Name) {
		logger.Info("Skipping non-summary file")
		return nil
	}

	content, err := p.fetcher.Fetch(ctx, event.Bucket, event.Name)
	if err != nil {
		return fmt.Errorf("fetch summary: %w", err)
	}

	// Email failure must not block push delivery.
	if p.mailer != nil {
		if err := p.mailer.SendSummary(ctx, event.Name, content); err != nil {
			logger.Error("Summary email failed", "err", err)
		}
	}

	n := compose.FromDocument(content, event.Bucket, event.Name)
	counts := p.dispatcher.DispatchAll(ctx, n)
	for provider, count := range counts {
		logger.Info("Provider dispatch complete", "provider", string(provider), "success", count)
	}

	return nil
}

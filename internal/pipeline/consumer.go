package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub/v2"
)

// Consumer receives GCS object notifications from a Pub/Sub subscription and
// feeds them to the Processor. One event runs to completion within its
// invocation; there is no cross-event state.
type Consumer struct {
	subscriber   *pubsub.Subscriber
	subscription string
	processor    *Processor
	logger       *slog.Logger
}

// NewConsumer wires a subscriber for the given subscription id.
func NewConsumer(client *pubsub.Client, subscriptionID string, processor *Processor, logger *slog.Logger) *Consumer {
	subscriber := client.Subscriber(subscriptionID)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10

	return &Consumer{
		subscriber:   subscriber,
		subscription: subscriptionID,
		processor:    processor,
		logger:       logger.With("component", "SummaryConsumer"),
	}
}

// Start blocks receiving messages until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting summary event consumer", "subscription", c.subscription)

	err := c.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		c.handleMessage(ctx, msg)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("pubsub receive: %w", err)
	}
	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := c.logger.With("message_id", msg.ID)

	var event StorageEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// Malformed events will never parse; ack to stop redelivery.
		logger.Error("Failed to parse storage event, dropping", "err", err)
		msg.Ack()
		return
	}

	logger.Info("Processing GCS event",
		"event_type", msg.Attributes["eventType"],
		"bucket", event.Bucket,
		"file", event.Name,
	)

	if err := c.processor.HandleEvent(ctx, event); err != nil {
		logger.Error("Event processing failed, will redeliver", "err", err)
		msg.Nack()
		return
	}
	msg.Ack()
}

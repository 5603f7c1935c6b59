package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LogiScore/backend-sub000/internal/service"
	"github.com/LogiScore/backend-sub000/pkg/kafka"
)

// Topics consumed by the review service.
var (
	TopicSubscriptionDowngraded = kafka.Topic("billing", "subscription_downgraded")
	TopicSubscriptionCancelled  = kafka.Topic("billing", "subscription_cancelled")
)

// Event types on the billing topics.
const (
	EventTypeSubscriptionDowngraded = "billing.subscription.downgraded"
	EventTypeSubscriptionCancelled  = "billing.subscription.cancelled"
)

// ConsumerGroupID is the consumer group for this service.
const ConsumerGroupID = "review-service"

// BillingEventData is the payload of billing entitlement events.
type BillingEventData struct {
	UserID  string `json:"user_id"`
	OldTier string `json:"old_tier"`
	NewTier string `json:"new_tier"`
	Reason  string `json:"reason"`
}

// ConsumerHandler reacts to billing entitlement changes by cleaning up the
// affected user's subscriptions.
type ConsumerHandler struct {
	lifecycle *service.LifecycleService
	logger    *slog.Logger
}

// NewConsumerHandler creates a handler.
func NewConsumerHandler(lifecycle *service.LifecycleService, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{lifecycle: lifecycle, logger: logger}
}

// Handle dispatches one event by type. Unknown types are logged and skipped.
func (h *ConsumerHandler) Handle(ctx context.Context, event *kafka.Event) error {
	switch event.EventType {
	case EventTypeSubscriptionDowngraded:
		return h.handleEntitlementChange(ctx, event, service.CleanupReasonDowngrade)
	case EventTypeSubscriptionCancelled:
		return h.handleEntitlementChange(ctx, event, service.CleanupReasonCancellation)
	default:
		h.logger.DebugContext(ctx, "ignoring unhandled event type",
			slog.String("event_type", event.EventType))
		return nil
	}
}

func (h *ConsumerHandler) handleEntitlementChange(ctx context.Context, event *kafka.Event, fallbackReason string) error {
	var data BillingEventData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal billing event data: %w", err)
	}
	if data.UserID == "" {
		return fmt.Errorf("billing event %s has no user_id", event.EventID)
	}

	reason := data.Reason
	if reason == "" {
		reason = fallbackReason
	}

	deleted, _, err := h.lifecycle.CleanupOnDowngrade(ctx, data.UserID, reason)
	if err != nil {
		return fmt.Errorf("cleanup after %s: %w", event.EventType, err)
	}

	h.logger.InfoContext(ctx, "billing event processed",
		slog.String("event_type", event.EventType),
		slog.String("user_id", data.UserID),
		slog.String("reason", reason),
		slog.Int("subscriptions_deleted", deleted),
	)

	return nil
}

// NewConsumers builds one consumer per billing topic, each wrapped with an
// idempotency guard so replayed events are dropped.
func NewConsumers(brokers []string, handler *ConsumerHandler, logger *slog.Logger) []*kafka.Consumer {
	topics := []string{
		TopicSubscriptionDowngraded,
		TopicSubscriptionCancelled,
	}

	store := kafka.NewMemoryIdempotencyStore(24 * time.Hour)
	wrapped := kafka.IdempotentHandler(store, handler.Handle, logger)

	consumers := make([]*kafka.Consumer, 0, len(topics))
	for _, topic := range topics {
		consumers = append(consumers, kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  ConsumerGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, wrapped, logger))
	}

	return consumers
}

package event

import (
	"context"
	"log/slog"

	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/pkg/kafka"
	"github.com/LogiScore/backend-sub000/pkg/logger"
)

// Topics published by the review service.
var (
	TopicReviewCreated      = kafka.Topic("review", "created")
	TopicNotificationSent   = kafka.Topic("notification", "sent")
	TopicNotificationFailed = kafka.Topic("notification", "failed")
	TopicThresholdBreached  = kafka.Topic("threshold", "breached")
)

// Event types carried in the envelope.
const (
	EventTypeReviewCreated      = "review.created"
	EventTypeNotificationSent   = "notification.sent"
	EventTypeNotificationFailed = "notification.failed"
	EventTypeThresholdBreached  = "threshold.breached"
)

const source = "review-service"

// ReviewCreatedData is the payload of a review.created event.
type ReviewCreatedData struct {
	ReviewID           string  `json:"review_id"`
	FreightForwarderID string  `json:"freight_forwarder_id"`
	Country            string  `json:"country"`
	City               string  `json:"city"`
	ReviewType         string  `json:"review_type"`
	AggregateRating    float64 `json:"aggregate_rating"`
	WeightedRating     float64 `json:"weighted_rating"`
	IsAnonymous        bool    `json:"is_anonymous"`
}

// NotificationData is the payload of notification.sent and
// notification.failed events.
type NotificationData struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	ReviewID       string `json:"review_id"`
	SubscriptionID string `json:"subscription_id"`
	Frequency      string `json:"frequency"`
	Error          string `json:"error,omitempty"`
}

// ThresholdBreachedData is the payload of a threshold.breached event.
type ThresholdBreachedData struct {
	SubscriptionID     string  `json:"subscription_id"`
	FreightForwarderID string  `json:"freight_forwarder_id"`
	CurrentScore       float64 `json:"current_score"`
	ThresholdScore     float64 `json:"threshold_score"`
}

// Producer publishes review service events. A nil Kafka producer disables
// publishing, which keeps local development working without a broker.
type Producer struct {
	kafka  *kafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer. kafkaProducer may be nil.
func NewProducer(kafkaProducer *kafka.Producer, log *slog.Logger) *Producer {
	return &Producer{kafka: kafkaProducer, logger: log}
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	if p.kafka == nil {
		return nil
	}

	evt, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, data)
	if err != nil {
		return err
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	return p.kafka.Publish(ctx, topic, evt)
}

// PublishReviewCreated announces a newly scored review.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, EventTypeReviewCreated, review.ID, "review", ReviewCreatedData{
		ReviewID:           review.ID,
		FreightForwarderID: review.FreightForwarderID,
		Country:            review.Country,
		City:               review.City,
		ReviewType:         review.ReviewType,
		AggregateRating:    review.AggregateRating,
		WeightedRating:     review.WeightedRating,
		IsAnonymous:        review.IsAnonymous,
	})
}

// PublishNotificationSent announces a delivered notification.
func (p *Producer) PublishNotificationSent(ctx context.Context, n *domain.ReviewNotification) error {
	return p.publish(ctx, TopicNotificationSent, EventTypeNotificationSent, n.ID, "notification", NotificationData{
		NotificationID: n.ID,
		UserID:         n.UserID,
		ReviewID:       n.ReviewID,
		SubscriptionID: n.SubscriptionID,
		Frequency:      n.NotificationType,
	})
}

// PublishNotificationFailed announces a delivery failure.
func (p *Producer) PublishNotificationFailed(ctx context.Context, n *domain.ReviewNotification, sendErr error) error {
	data := NotificationData{
		NotificationID: n.ID,
		UserID:         n.UserID,
		ReviewID:       n.ReviewID,
		SubscriptionID: n.SubscriptionID,
		Frequency:      n.NotificationType,
	}
	if sendErr != nil {
		data.Error = sendErr.Error()
	}
	return p.publish(ctx, TopicNotificationFailed, EventTypeNotificationFailed, n.ID, "notification", data)
}

// PublishThresholdBreached announces a threshold breach alert.
func (p *Producer) PublishThresholdBreached(ctx context.Context, n *domain.ScoreThresholdNotification, providerID string) error {
	return p.publish(ctx, TopicThresholdBreached, EventTypeThresholdBreached, n.SubscriptionID, "threshold_subscription", ThresholdBreachedData{
		SubscriptionID:     n.SubscriptionID,
		FreightForwarderID: providerID,
		CurrentScore:       n.CurrentScore,
		ThresholdScore:     n.ThresholdScore,
	})
}

package domain

import "time"

// ReviewNotification is the idempotency ledger for review fan-out: at most
// one row exists per (review, subscription) pair. Immediate notifications are
// marked sent right away; daily and weekly rows stay unsent until a digest
// job picks them up.
type ReviewNotification struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	ReviewID         string     `json:"review_id"`
	SubscriptionID   string     `json:"subscription_id"`
	NotificationType string     `json:"notification_type"`
	IsSent           bool       `json:"is_sent"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ScoreThresholdNotification records one threshold breach alert. Together
// with the subscription's LastNotificationSent it prevents re-alerting inside
// the frequency window.
//
// PreviousScore holds the threshold value rather than the provider's actual
// prior average; no historical score snapshot is retained.
type ScoreThresholdNotification struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	PreviousScore  float64   `json:"previous_score"`
	CurrentScore   float64   `json:"current_score"`
	ThresholdScore float64   `json:"threshold_score"`
	SentAt         time.Time `json:"sent_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// DigestEntry is one pending ledger row joined with enough review context to
// render a digest line.
type DigestEntry struct {
	NotificationID     string    `json:"notification_id"`
	UserID             string    `json:"user_id"`
	ReviewID           string    `json:"review_id"`
	SubscriptionID     string    `json:"subscription_id"`
	FreightForwarderID string    `json:"freight_forwarder_id"`
	Country            string    `json:"country"`
	City               string    `json:"city"`
	ReviewType         string    `json:"review_type"`
	AggregateRating    float64   `json:"aggregate_rating"`
	ReviewCreatedAt    time.Time `json:"review_created_at"`
}

// Package sender defines the boundary to the email delivery system. The
// engine hands over fully-formed payloads and never renders HTML; delivery
// failures are reported as errors and treated as "not sent, retry later".
package sender

import "context"

// Kind tags the payload variants so transports can route templates.
type Kind string

const (
	KindReviewMatch     Kind = "review_match"
	KindThresholdBreach Kind = "threshold_breach"
	KindDigest          Kind = "digest"
	KindCleanupNotice   Kind = "cleanup_notice"
)

// Payload is implemented by every notification payload variant.
type Payload interface {
	Kind() Kind
}

// ReviewMatchPayload announces a single new review to a matched subscriber.
type ReviewMatchPayload struct {
	ReviewID           string  `json:"review_id"`
	SubscriptionID     string  `json:"subscription_id"`
	FreightForwarderID string  `json:"freight_forwarder_id"`
	Country            string  `json:"country"`
	City               string  `json:"city"`
	ReviewType         string  `json:"review_type"`
	AggregateRating    float64 `json:"aggregate_rating"`
}

func (ReviewMatchPayload) Kind() Kind { return KindReviewMatch }

// ThresholdBreachPayload alerts a subscriber that a provider's rolling
// average fell below their threshold.
type ThresholdBreachPayload struct {
	SubscriptionID     string  `json:"subscription_id"`
	FreightForwarderID string  `json:"freight_forwarder_id"`
	CurrentScore       float64 `json:"current_score"`
	ThresholdScore     float64 `json:"threshold_score"`
	PreviousScore      float64 `json:"previous_score"`
}

func (ThresholdBreachPayload) Kind() Kind { return KindThresholdBreach }

// DigestItem is one review line inside a digest.
type DigestItem struct {
	ReviewID           string  `json:"review_id"`
	FreightForwarderID string  `json:"freight_forwarder_id"`
	Country            string  `json:"country"`
	City               string  `json:"city"`
	ReviewType         string  `json:"review_type"`
	AggregateRating    float64 `json:"aggregate_rating"`
}

// DigestPayload batches a window of matched reviews into one message.
type DigestPayload struct {
	Frequency string       `json:"frequency"`
	Items     []DigestItem `json:"items"`
}

func (DigestPayload) Kind() Kind { return KindDigest }

// CleanupNoticePayload tells a user their subscriptions were removed and why
// (downgrade, expiry, or cancellation).
type CleanupNoticePayload struct {
	Reason       string   `json:"reason"`
	DeletedCount int      `json:"deleted_count"`
	DeletedIDs   []string `json:"deleted_ids"`
}

func (CleanupNoticePayload) Kind() Kind { return KindCleanupNotice }

// EmailSender delivers one rendered notification to a recipient. The
// recipient is a user ID; address resolution happens downstream.
type EmailSender interface {
	// Name identifies the transport in logs.
	Name() string

	// Send delivers the payload. A non-nil error means "not sent"; the
	// caller leaves the ledger unsent so a retry job can pick it up.
	Send(ctx context.Context, recipient string, payload Payload) error
}

package domain

import (
	"strings"
	"time"
)

// Notification frequencies.
const (
	FrequencyImmediate = "immediate"
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
)

// ValidFrequencies lists all accepted notification frequencies.
var ValidFrequencies = []string{FrequencyImmediate, FrequencyDaily, FrequencyWeekly}

// IsValidFrequency reports whether f is an accepted frequency.
func IsValidFrequency(f string) bool {
	for _, v := range ValidFrequencies {
		if f == v {
			return true
		}
	}
	return false
}

// FrequencyWindow returns the minimum interval between notifications for the
// given frequency. Immediate has no window.
func FrequencyWindow(frequency string) time.Duration {
	switch frequency {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// ReviewSubscription is a user's standing request to be told about new
// reviews. Every nil filter is a wildcard; a subscription with all filters
// nil matches every review.
type ReviewSubscription struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	FreightForwarderID    *string   `json:"freight_forwarder_id,omitempty"`
	Country               *string   `json:"country,omitempty"`
	City                  *string   `json:"city,omitempty"`
	ReviewType            *string   `json:"review_type,omitempty"`
	NotificationFrequency string    `json:"notification_frequency"`
	IsActive              bool      `json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// IsGeneral reports whether the subscription has no filters at all.
func (s *ReviewSubscription) IsGeneral() bool {
	return s.FreightForwarderID == nil && s.Country == nil && s.City == nil && s.ReviewType == nil
}

// Matches reports whether the subscription's filters accept the review.
// Every set filter must match; country and city compare case-insensitively
// after trimming. Inactive subscriptions never match.
func (s *ReviewSubscription) Matches(r *Review) bool {
	if !s.IsActive {
		return false
	}
	if s.FreightForwarderID != nil && *s.FreightForwarderID != r.FreightForwarderID {
		return false
	}
	if s.Country != nil && !equalFold(*s.Country, r.Country) {
		return false
	}
	if s.City != nil && !equalFold(*s.City, r.City) {
		return false
	}
	if s.ReviewType != nil && *s.ReviewType != r.ReviewType {
		return false
	}
	return true
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ScoreThresholdSubscription asks to be alerted when a provider's rolling
// average drops below a chosen score. It is tied to a paid entitlement and
// carries that entitlement's end date in ExpiresAt.
type ScoreThresholdSubscription struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	FreightForwarderID    string     `json:"freight_forwarder_id"`
	ThresholdScore        float64    `json:"threshold_score"`
	NotificationFrequency string     `json:"notification_frequency"`
	IsActive              bool       `json:"is_active"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	LastNotificationSent  *time.Time `json:"last_notification_sent,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// IsExpired reports whether the entitlement backing the subscription has
// lapsed. An expired subscription is treated as inactive regardless of the
// IsActive flag.
func (s *ScoreThresholdSubscription) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// NotificationDue reports whether enough time has passed since the last
// notification for this subscription's frequency. Immediate is always due;
// a subscription never notified is always due.
func (s *ScoreThresholdSubscription) NotificationDue(now time.Time) bool {
	if s.NotificationFrequency == FrequencyImmediate {
		return true
	}
	if s.LastNotificationSent == nil {
		return true
	}
	return now.Sub(*s.LastNotificationSent) >= FrequencyWindow(s.NotificationFrequency)
}

// Paid tiers whose entitlement includes score threshold alerts.
const (
	TierShipperAnnual   = "shipper_annual"
	TierForwarderAnnual = "forwarder_annual"
)

// IsPaidTier reports whether the tier carries threshold-alert entitlement.
func IsPaidTier(tier string) bool {
	return tier == TierShipperAnnual || tier == TierForwarderAnnual
}

// Package repository defines the persistence contracts the services depend
// on. Multi-table writes that must be atomic live inside single repository
// methods so services never manage transactions themselves.
package repository

import (
	"context"
	"time"

	"github.com/LogiScore/backend-sub000/internal/domain"
)

// ReviewRepository persists reviews and their category scores.
type ReviewRepository interface {
	// Create inserts the review and all of its category scores in one
	// transaction.
	Create(ctx context.Context, review *domain.Review, scores []domain.CategoryScore) error

	// GetByID returns the review or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// ListByProvider returns a page of reviews for a provider, newest first,
	// along with the total count.
	ListByProvider(ctx context.Context, providerID string, page, perPage int) ([]domain.Review, int, error)

	// AggregateRatings returns just the aggregate ratings of a provider's
	// reviews, for the rolling average.
	AggregateRatings(ctx context.Context, providerID string) ([]float64, error)

	// CategoryScoreRows returns the narrow projection used for the
	// per-category rollup.
	CategoryScoreRows(ctx context.Context, providerID string) ([]domain.CategoryScoreRow, error)
}

// SubscriptionRepository persists review subscriptions.
type SubscriptionRepository interface {
	// Create inserts a new subscription.
	Create(ctx context.Context, sub *domain.ReviewSubscription) error

	// GetByID returns the subscription or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.ReviewSubscription, error)

	// ListByUser returns all subscriptions owned by a user.
	ListByUser(ctx context.Context, userID string) ([]domain.ReviewSubscription, error)

	// ListCandidates returns active subscriptions that could match a review
	// for the given provider: provider-specific ones plus every subscription
	// without a provider filter. The matcher applies the remaining filters.
	ListCandidates(ctx context.Context, providerID string) ([]domain.ReviewSubscription, error)

	// SetActive flips the is_active flag.
	SetActive(ctx context.Context, id string, active bool) error

	// UpdateFrequency changes the notification frequency.
	UpdateFrequency(ctx context.Context, id, frequency string) error

	// DeleteCascade removes the subscription and its notification ledger rows
	// in one transaction.
	DeleteCascade(ctx context.Context, id string) error

	// DeleteByUserCascade removes every subscription owned by the user,
	// ledger rows first, and returns the deleted subscription IDs.
	DeleteByUserCascade(ctx context.Context, userID string) ([]string, error)
}

// NotificationRepository is the review notification ledger.
type NotificationRepository interface {
	// Insert adds a ledger row. It returns false with no error when a row for
	// the same (review, subscription) pair already exists, making retried
	// fan-outs harmless.
	Insert(ctx context.Context, n *domain.ReviewNotification) (bool, error)

	// MarkSent flags a row as delivered.
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// PendingDigestEntries returns unsent rows of the given frequency whose
	// review was created at or after windowStart, joined with review context,
	// ordered by user.
	PendingDigestEntries(ctx context.Context, frequency string, windowStart time.Time) ([]domain.DigestEntry, error)

	// MarkBatchSent flags a set of rows as delivered.
	MarkBatchSent(ctx context.Context, ids []string, sentAt time.Time) error

	// PurgeSentBefore deletes delivered rows older than the cutoff and
	// returns how many were removed.
	PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ThresholdRepository persists score threshold subscriptions and their
// notification ledger.
type ThresholdRepository interface {
	// Create inserts a new threshold subscription.
	Create(ctx context.Context, sub *domain.ScoreThresholdSubscription) error

	// GetByID returns the subscription or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.ScoreThresholdSubscription, error)

	// ListByUser returns all threshold subscriptions owned by a user.
	ListByUser(ctx context.Context, userID string) ([]domain.ScoreThresholdSubscription, error)

	// ListActiveByProvider returns active subscriptions for a provider whose
	// entitlement has not lapsed as of now.
	ListActiveByProvider(ctx context.Context, providerID string, now time.Time) ([]domain.ScoreThresholdSubscription, error)

	// ProvidersWithActiveSubscriptions returns the distinct provider IDs that
	// have at least one active, unexpired subscription.
	ProvidersWithActiveSubscriptions(ctx context.Context, now time.Time) ([]string, error)

	// SetActive flips the is_active flag.
	SetActive(ctx context.Context, id string, active bool) error

	// UpdateLastNotified records when the subscriber was last alerted.
	UpdateLastNotified(ctx context.Context, id string, at time.Time) error

	// DeactivateExpired flags every active subscription past its expiry as
	// inactive and returns how many were changed. Idempotent.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// Delete removes the subscription and its notification ledger rows.
	Delete(ctx context.Context, id string) error

	// InsertNotification appends a breach record to the ledger.
	InsertNotification(ctx context.Context, n *domain.ScoreThresholdNotification) error
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/internal/event"
	"github.com/LogiScore/backend-sub000/internal/matching"
	"github.com/LogiScore/backend-sub000/internal/repository"
	"github.com/LogiScore/backend-sub000/internal/sender"
)

// NotificationScheduler fans a new review out to matching subscriptions and
// delivers digest batches. The notification ledger makes both operations
// idempotent: re-running a fan-out or digest never double-sends.
type NotificationScheduler struct {
	subs     repository.SubscriptionRepository
	ledger   repository.NotificationRepository
	reviews  repository.ReviewRepository
	sender   sender.EmailSender
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewNotificationScheduler creates a scheduler.
func NewNotificationScheduler(
	subs repository.SubscriptionRepository,
	ledger repository.NotificationRepository,
	reviews repository.ReviewRepository,
	emailSender sender.EmailSender,
	producer *event.Producer,
	logger *slog.Logger,
) *NotificationScheduler {
	return &NotificationScheduler{
		subs:     subs,
		ledger:   ledger,
		reviews:  reviews,
		sender:   emailSender,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// FanOut finds every subscription matching the review and records a ledger
// row per match. Immediate subscriptions are sent right away; daily and
// weekly rows wait for the digest job. The returned count is the number of
// new ledger rows.
//
// Send failures are logged and leave the row unsent; they never propagate to
// the caller, so review creation cannot fail because of delivery problems.
func (s *NotificationScheduler) FanOut(ctx context.Context, review *domain.Review) (int, error) {
	candidates, err := s.subs.ListCandidates(ctx, review.FreightForwarderID)
	if err != nil {
		return 0, fmt.Errorf("list candidate subscriptions: %w", err)
	}

	matches := matching.FindMatches(review, candidates)
	if len(matches) == 0 {
		return 0, nil
	}

	created := 0
	for _, sub := range matches {
		n := &domain.ReviewNotification{
			ID:               uuid.New().String(),
			UserID:           sub.UserID,
			ReviewID:         review.ID,
			SubscriptionID:   sub.ID,
			NotificationType: sub.NotificationFrequency,
			IsSent:           false,
			CreatedAt:        s.now().UTC(),
		}

		inserted, err := s.ledger.Insert(ctx, n)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to record notification",
				slog.String("review_id", review.ID),
				slog.String("subscription_id", sub.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !inserted {
			// Already fanned out for this pair, nothing to do.
			continue
		}
		created++

		if sub.NotificationFrequency != domain.FrequencyImmediate {
			continue
		}

		s.sendImmediate(ctx, review, n)
	}

	return created, nil
}

func (s *NotificationScheduler) sendImmediate(ctx context.Context, review *domain.Review, n *domain.ReviewNotification) {
	payload := sender.ReviewMatchPayload{
		ReviewID:           review.ID,
		SubscriptionID:     n.SubscriptionID,
		FreightForwarderID: review.FreightForwarderID,
		Country:            review.Country,
		City:               review.City,
		ReviewType:         review.ReviewType,
		AggregateRating:    review.AggregateRating,
	}

	if err := s.sender.Send(ctx, n.UserID, payload); err != nil {
		s.logger.WarnContext(ctx, "immediate notification delivery failed",
			slog.String("review_id", review.ID),
			slog.String("subscription_id", n.SubscriptionID),
			slog.String("user_id", n.UserID),
			slog.String("error", err.Error()),
		)
		if pubErr := s.producer.PublishNotificationFailed(ctx, n, err); pubErr != nil {
			s.logger.WarnContext(ctx, "failed to publish notification.failed event",
				slog.String("error", pubErr.Error()))
		}
		return
	}

	sentAt := s.now().UTC()
	if err := s.ledger.MarkSent(ctx, n.ID, sentAt); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark notification sent",
			slog.String("notification_id", n.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	n.IsSent = true
	n.SentAt = &sentAt

	if err := s.producer.PublishNotificationSent(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "failed to publish notification.sent event",
			slog.String("error", err.Error()))
	}
}

// DispatchDigests delivers one digest per subscriber covering the unsent
// ledger rows of the given frequency inside its window (24h for daily, 7d
// for weekly). Rows are marked sent only after their digest is delivered, so
// a crashed run redelivers rather than drops. Returns the number of digests
// sent.
func (s *NotificationScheduler) DispatchDigests(ctx context.Context, frequency string) (int, error) {
	window := domain.FrequencyWindow(frequency)
	if window == 0 {
		return 0, fmt.Errorf("frequency %q has no digest window", frequency)
	}

	windowStart := s.now().UTC().Add(-window)
	entries, err := s.ledger.PendingDigestEntries(ctx, frequency, windowStart)
	if err != nil {
		return 0, fmt.Errorf("list pending digest entries: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	// Entries arrive ordered by user; group them preserving order.
	byUser := make(map[string][]domain.DigestEntry)
	var users []string
	for _, e := range entries {
		if _, ok := byUser[e.UserID]; !ok {
			users = append(users, e.UserID)
		}
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	sent := 0
	for _, userID := range users {
		userEntries := byUser[userID]

		items := make([]sender.DigestItem, len(userEntries))
		ids := make([]string, len(userEntries))
		for i, e := range userEntries {
			items[i] = sender.DigestItem{
				ReviewID:           e.ReviewID,
				FreightForwarderID: e.FreightForwarderID,
				Country:            e.Country,
				City:               e.City,
				ReviewType:         e.ReviewType,
				AggregateRating:    e.AggregateRating,
			}
			ids[i] = e.NotificationID
		}

		payload := sender.DigestPayload{Frequency: frequency, Items: items}
		if err := s.sender.Send(ctx, userID, payload); err != nil {
			s.logger.WarnContext(ctx, "digest delivery failed",
				slog.String("user_id", userID),
				slog.String("frequency", frequency),
				slog.Int("entries", len(userEntries)),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := s.ledger.MarkBatchSent(ctx, ids, s.now().UTC()); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark digest entries sent",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
	}

	return sent, nil
}

// PurgeDeliveredNotifications removes delivered ledger rows older than the
// retention period.
func (s *NotificationScheduler) PurgeDeliveredNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)
	purged, err := s.ledger.PurgeSentBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge delivered notifications: %w", err)
	}
	if purged > 0 {
		s.logger.InfoContext(ctx, "purged delivered notifications",
			slog.Int64("count", purged),
			slog.Time("cutoff", cutoff),
		)
	}
	return purged, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/LogiScore/backend-sub000/internal/cache"
	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/internal/event"
	"github.com/LogiScore/backend-sub000/internal/repository"
	"github.com/LogiScore/backend-sub000/internal/scoring"
	"github.com/LogiScore/backend-sub000/internal/sender"
)

// ThresholdMonitor recomputes provider averages and alerts subscribers whose
// threshold the score has fallen below, throttled per subscription frequency.
type ThresholdMonitor struct {
	reviews    repository.ReviewRepository
	thresholds repository.ThresholdRepository
	scores     cache.ScoreCache
	sender     sender.EmailSender
	producer   *event.Producer
	logger     *slog.Logger
	now        func() time.Time
}

// NewThresholdMonitor creates a monitor.
func NewThresholdMonitor(
	reviews repository.ReviewRepository,
	thresholds repository.ThresholdRepository,
	scores cache.ScoreCache,
	emailSender sender.EmailSender,
	producer *event.Producer,
	logger *slog.Logger,
) *ThresholdMonitor {
	return &ThresholdMonitor{
		reviews:    reviews,
		thresholds: thresholds,
		scores:     scores,
		sender:     emailSender,
		producer:   producer,
		logger:     logger,
		now:        time.Now,
	}
}

// ProviderScore returns the provider's current rolling average, reading
// through the score cache. Cache failures degrade to a recompute.
func (m *ThresholdMonitor) ProviderScore(ctx context.Context, providerID string) (float64, error) {
	if score, ok, err := m.scores.Get(ctx, providerID); err != nil {
		m.logger.WarnContext(ctx, "score cache read failed",
			slog.String("provider_id", providerID),
			slog.String("error", err.Error()),
		)
	} else if ok {
		return score, nil
	}

	ratings, err := m.reviews.AggregateRatings(ctx, providerID)
	if err != nil {
		return 0, fmt.Errorf("load aggregate ratings: %w", err)
	}
	score := scoring.ProviderAverage(ratings)

	if err := m.scores.Set(ctx, providerID, score); err != nil {
		m.logger.WarnContext(ctx, "score cache write failed",
			slog.String("provider_id", providerID),
			slog.String("error", err.Error()),
		)
	}

	return score, nil
}

// CheckProvider evaluates every active threshold subscription for the
// provider against its current score and returns how many alerts were sent.
// A failure on one subscription never blocks the rest.
func (m *ThresholdMonitor) CheckProvider(ctx context.Context, providerID string) (int, error) {
	score, err := m.ProviderScore(ctx, providerID)
	if err != nil {
		return 0, err
	}

	now := m.now().UTC()
	subs, err := m.thresholds.ListActiveByProvider(ctx, providerID, now)
	if err != nil {
		return 0, fmt.Errorf("list threshold subscriptions: %w", err)
	}

	sent := 0
	for _, sub := range subs {
		if score >= sub.ThresholdScore {
			continue
		}
		if !sub.NotificationDue(now) {
			continue
		}

		if m.notifyBreach(ctx, &sub, providerID, score, now) {
			sent++
		}
	}

	return sent, nil
}

// notifyBreach records and delivers one breach alert. Returns true when the
// alert was delivered.
func (m *ThresholdMonitor) notifyBreach(ctx context.Context, sub *domain.ScoreThresholdSubscription, providerID string, score float64, now time.Time) bool {
	n := &domain.ScoreThresholdNotification{
		ID:             uuid.New().String(),
		SubscriptionID: sub.ID,
		PreviousScore:  sub.ThresholdScore,
		CurrentScore:   score,
		ThresholdScore: sub.ThresholdScore,
		SentAt:         now,
		CreatedAt:      now,
	}

	if err := m.thresholds.InsertNotification(ctx, n); err != nil {
		m.logger.ErrorContext(ctx, "failed to record threshold notification",
			slog.String("subscription_id", sub.ID),
			slog.String("provider_id", providerID),
			slog.String("error", err.Error()),
		)
		return false
	}

	payload := sender.ThresholdBreachPayload{
		SubscriptionID:     sub.ID,
		FreightForwarderID: providerID,
		CurrentScore:       score,
		ThresholdScore:     sub.ThresholdScore,
		PreviousScore:      n.PreviousScore,
	}
	if err := m.sender.Send(ctx, sub.UserID, payload); err != nil {
		m.logger.WarnContext(ctx, "threshold alert delivery failed",
			slog.String("subscription_id", sub.ID),
			slog.String("user_id", sub.UserID),
			slog.String("error", err.Error()),
		)
		return false
	}

	if err := m.thresholds.UpdateLastNotified(ctx, sub.ID, now); err != nil {
		m.logger.ErrorContext(ctx, "failed to update last notification time",
			slog.String("subscription_id", sub.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := m.producer.PublishThresholdBreached(ctx, n, providerID); err != nil {
		m.logger.WarnContext(ctx, "failed to publish threshold.breached event",
			slog.String("error", err.Error()))
	}

	return true
}

// CheckAll sweeps every provider with active threshold subscriptions. A
// failed provider is counted and skipped so one bad provider cannot abort
// the batch. Returns total alerts sent and the per-provider failure count.
func (m *ThresholdMonitor) CheckAll(ctx context.Context) (sent, failed int, err error) {
	providers, err := m.thresholds.ProvidersWithActiveSubscriptions(ctx, m.now().UTC())
	if err != nil {
		return 0, 0, fmt.Errorf("list providers with subscriptions: %w", err)
	}

	for _, providerID := range providers {
		n, checkErr := m.CheckProvider(ctx, providerID)
		if checkErr != nil {
			failed++
			m.logger.ErrorContext(ctx, "threshold check failed for provider",
				slog.String("provider_id", providerID),
				slog.String("error", checkErr.Error()),
			)
			continue
		}
		sent += n
	}

	return sent, failed, nil
}

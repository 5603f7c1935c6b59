package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/internal/repository"
	"github.com/LogiScore/backend-sub000/internal/sender"
	apperrors "github.com/LogiScore/backend-sub000/pkg/errors"
)

// Cleanup reasons passed along from billing.
const (
	CleanupReasonDowngrade    = "downgrade"
	CleanupReasonExpiry       = "expiry"
	CleanupReasonCancellation = "cancellation"
)

// LifecycleService owns subscription CRUD, entitlement-driven cleanup, and
// expiry sweeps for both subscription kinds.
type LifecycleService struct {
	subs       repository.SubscriptionRepository
	thresholds repository.ThresholdRepository
	sender     sender.EmailSender
	logger     *slog.Logger
	now        func() time.Time
}

// NewLifecycleService creates a lifecycle service.
func NewLifecycleService(
	subs repository.SubscriptionRepository,
	thresholds repository.ThresholdRepository,
	emailSender sender.EmailSender,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		subs:       subs,
		thresholds: thresholds,
		sender:     emailSender,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateSubscriptionInput is a new review subscription request.
type CreateSubscriptionInput struct {
	UserID                string  `json:"user_id" validate:"required,uuid"`
	FreightForwarderID    *string `json:"freight_forwarder_id,omitempty"`
	Country               *string `json:"country,omitempty"`
	City                  *string `json:"city,omitempty"`
	ReviewType            *string `json:"review_type,omitempty"`
	NotificationFrequency string  `json:"notification_frequency" validate:"required"`
}

// CreateSubscription validates and stores a new review subscription.
func (s *LifecycleService) CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*domain.ReviewSubscription, error) {
	if !domain.IsValidFrequency(input.NotificationFrequency) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid notification frequency %q", input.NotificationFrequency))
	}
	if input.ReviewType != nil && !domain.IsValidReviewType(*input.ReviewType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid review type %q", *input.ReviewType))
	}
	if input.City != nil && input.Country == nil {
		return nil, apperrors.InvalidInput("a city filter requires a country filter")
	}

	now := s.now().UTC()
	sub := &domain.ReviewSubscription{
		ID:                    uuid.New().String(),
		UserID:                input.UserID,
		FreightForwarderID:    input.FreightForwarderID,
		Country:               input.Country,
		City:                  input.City,
		ReviewType:            input.ReviewType,
		NotificationFrequency: input.NotificationFrequency,
		IsActive:              true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	return sub, nil
}

// ListUserSubscriptions returns all review subscriptions a user owns.
func (s *LifecycleService) ListUserSubscriptions(ctx context.Context, userID string) ([]domain.ReviewSubscription, error) {
	return s.subs.ListByUser(ctx, userID)
}

// ownedSubscription loads a subscription and enforces ownership.
func (s *LifecycleService) ownedSubscription(ctx context.Context, id, userID string) (*domain.ReviewSubscription, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, apperrors.Forbidden("subscription belongs to another user")
	}
	return sub, nil
}

// ToggleSubscription activates or deactivates an owned subscription.
func (s *LifecycleService) ToggleSubscription(ctx context.Context, id, userID string, active bool) error {
	if _, err := s.ownedSubscription(ctx, id, userID); err != nil {
		return err
	}
	return s.subs.SetActive(ctx, id, active)
}

// UpdateSubscriptionFrequency changes an owned subscription's frequency.
func (s *LifecycleService) UpdateSubscriptionFrequency(ctx context.Context, id, userID, frequency string) error {
	if !domain.IsValidFrequency(frequency) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid notification frequency %q", frequency))
	}
	if _, err := s.ownedSubscription(ctx, id, userID); err != nil {
		return err
	}
	return s.subs.UpdateFrequency(ctx, id, frequency)
}

// DeleteSubscription hard-deletes an owned subscription and its notification
// ledger rows.
func (s *LifecycleService) DeleteSubscription(ctx context.Context, id, userID string) error {
	if _, err := s.ownedSubscription(ctx, id, userID); err != nil {
		return err
	}
	return s.subs.DeleteCascade(ctx, id)
}

// CleanupOnDowngrade removes every review subscription the user owns,
// triggered by billing when an entitlement lapses. The user is notified of
// the cleanup on a best-effort basis.
func (s *LifecycleService) CleanupOnDowngrade(ctx context.Context, userID, reason string) (int, []string, error) {
	ids, err := s.subs.DeleteByUserCascade(ctx, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("cleanup subscriptions for user %s: %w", userID, err)
	}
	if len(ids) == 0 {
		return 0, nil, nil
	}

	s.logger.InfoContext(ctx, "subscriptions cleaned up",
		slog.String("user_id", userID),
		slog.String("reason", reason),
		slog.Int("deleted", len(ids)),
	)

	payload := sender.CleanupNoticePayload{
		Reason:       reason,
		DeletedCount: len(ids),
		DeletedIDs:   ids,
	}
	if err := s.sender.Send(ctx, userID, payload); err != nil {
		s.logger.WarnContext(ctx, "cleanup notice delivery failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return len(ids), ids, nil
}

// CreateThresholdSubscriptionInput is a new score threshold subscription
// request. Tier and entitlement end date come from the billing context of
// the caller.
type CreateThresholdSubscriptionInput struct {
	UserID                string     `json:"user_id" validate:"required,uuid"`
	FreightForwarderID    string     `json:"freight_forwarder_id" validate:"required,uuid"`
	ThresholdScore        float64    `json:"threshold_score" validate:"gte=0,lte=5"`
	NotificationFrequency string     `json:"notification_frequency" validate:"required"`
	UserTier              string     `json:"-"`
	EntitlementEnd        *time.Time `json:"-"`
}

// CreateThresholdSubscription stores a new threshold subscription. Threshold
// alerts are a paid feature: the user's tier must carry the entitlement, and
// the subscription expires when the entitlement does.
func (s *LifecycleService) CreateThresholdSubscription(ctx context.Context, input CreateThresholdSubscriptionInput) (*domain.ScoreThresholdSubscription, error) {
	if !domain.IsPaidTier(input.UserTier) {
		return nil, apperrors.Forbidden("score threshold alerts require an annual subscription")
	}
	if !domain.IsValidFrequency(input.NotificationFrequency) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid notification frequency %q", input.NotificationFrequency))
	}
	if input.ThresholdScore < float64(domain.MinRating) || input.ThresholdScore > float64(domain.MaxRating) {
		return nil, apperrors.InvalidInput("threshold score must be between 0 and 5")
	}

	now := s.now().UTC()
	sub := &domain.ScoreThresholdSubscription{
		ID:                    uuid.New().String(),
		UserID:                input.UserID,
		FreightForwarderID:    input.FreightForwarderID,
		ThresholdScore:        input.ThresholdScore,
		NotificationFrequency: input.NotificationFrequency,
		IsActive:              true,
		ExpiresAt:             input.EntitlementEnd,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.thresholds.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create threshold subscription: %w", err)
	}

	return sub, nil
}

// ListUserThresholdSubscriptions returns all threshold subscriptions a user
// owns.
func (s *LifecycleService) ListUserThresholdSubscriptions(ctx context.Context, userID string) ([]domain.ScoreThresholdSubscription, error) {
	return s.thresholds.ListByUser(ctx, userID)
}

// ToggleThresholdSubscription activates or deactivates an owned threshold
// subscription. Reactivating an expired subscription is rejected; it needs a
// fresh expiry from a renewed entitlement.
func (s *LifecycleService) ToggleThresholdSubscription(ctx context.Context, id, userID string, active bool) error {
	sub, err := s.thresholds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return apperrors.Forbidden("threshold subscription belongs to another user")
	}
	if active && sub.IsExpired(s.now().UTC()) {
		return apperrors.InvalidInput("cannot reactivate an expired threshold subscription")
	}
	return s.thresholds.SetActive(ctx, id, active)
}

// DeleteThresholdSubscription hard-deletes an owned threshold subscription
// and its notification ledger.
func (s *LifecycleService) DeleteThresholdSubscription(ctx context.Context, id, userID string) error {
	sub, err := s.thresholds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return apperrors.Forbidden("threshold subscription belongs to another user")
	}
	return s.thresholds.Delete(ctx, id)
}

// ExpireStaleThresholdSubscriptions deactivates every threshold subscription
// whose entitlement has lapsed. Idempotent; safe under concurrent workers.
func (s *LifecycleService) ExpireStaleThresholdSubscriptions(ctx context.Context) (int64, error) {
	count, err := s.thresholds.DeactivateExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "expired threshold subscriptions deactivated",
			slog.Int64("count", count))
	}
	return count, nil
}

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
	apperrors "github.com/LogiScore/backend-sub000/pkg/errors"
)

// ReviewService handles review creation and provider score queries. Scoring
// failures abort the write; everything downstream of the write (fan-out,
// threshold check, events) is best effort.
type ReviewService struct {
	reviews   repository.ReviewRepository
	scheduler *NotificationScheduler
	monitor   *ThresholdMonitor
	scores    cache.ScoreCache
	producer  *event.Producer
	logger    *slog.Logger
	now       func() time.Time
}

// NewReviewService creates a review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	scheduler *NotificationScheduler,
	monitor *ThresholdMonitor,
	scores cache.ScoreCache,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:   reviews,
		scheduler: scheduler,
		monitor:   monitor,
		scores:    scores,
		producer:  producer,
		logger:    logger,
		now:       time.Now,
	}
}

// CategoryScoreInput is one answered question in a review submission.
type CategoryScoreInput struct {
	CategoryID       string  `json:"category_id" validate:"required"`
	CategoryName     string  `json:"category_name" validate:"required"`
	QuestionID       string  `json:"question_id" validate:"required"`
	QuestionText     string  `json:"question_text"`
	Rating           int     `json:"rating" validate:"gte=0,lte=5"`
	Weight           float64 `json:"weight"`
	RatingDefinition string  `json:"rating_definition"`
}

// CreateReviewInput is a review submission.
type CreateReviewInput struct {
	FreightForwarderID string               `json:"freight_forwarder_id" validate:"required,uuid"`
	UserID             *string              `json:"user_id,omitempty"`
	Country            string               `json:"country" validate:"required"`
	City               string               `json:"city" validate:"required"`
	ReviewType         string               `json:"review_type"`
	IsAnonymous        bool                 `json:"is_anonymous"`
	CategoryScores     []CategoryScoreInput `json:"category_scores" validate:"required,min=1,dive"`
}

// CreateReview validates and scores the submission, persists the review with
// its category scores, and then triggers subscription fan-out and a
// threshold check for the provider. Fan-out and threshold failures are
// logged, never returned: a stored review always succeeds from the caller's
// point of view once scoring and persistence are done.
func (s *ReviewService) CreateReview(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	if input.ReviewType == "" {
		input.ReviewType = domain.ReviewTypeGeneral
	}
	if !domain.IsValidReviewType(input.ReviewType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid review type %q", input.ReviewType))
	}

	// A submission without an author is anonymous no matter what the flag says.
	isAnonymous := input.IsAnonymous || input.UserID == nil
	weight := domain.WeightAuthenticated
	if isAnonymous {
		weight = domain.WeightAnonymous
	}

	now := s.now().UTC()
	reviewID := uuid.New().String()

	scores := make([]domain.CategoryScore, len(input.CategoryScores))
	for i, in := range input.CategoryScores {
		questionWeight := in.Weight
		if questionWeight == 0 {
			questionWeight = 1.0
		}
		scores[i] = domain.CategoryScore{
			ID:               uuid.New().String(),
			ReviewID:         reviewID,
			CategoryID:       in.CategoryID,
			CategoryName:     in.CategoryName,
			QuestionID:       in.QuestionID,
			QuestionText:     in.QuestionText,
			Rating:           in.Rating,
			Weight:           questionWeight,
			RatingDefinition: in.RatingDefinition,
			CreatedAt:        now,
		}
	}

	// Scoring failures are fatal: a review without valid scores is invalid data.
	aggregate, weighted, totalRated, err := scoring.ComputeReviewScores(scores, weight)
	if err != nil {
		return nil, err
	}

	review := &domain.Review{
		ID:                  reviewID,
		FreightForwarderID:  input.FreightForwarderID,
		UserID:              input.UserID,
		Country:             input.Country,
		City:                input.City,
		ReviewType:          input.ReviewType,
		IsAnonymous:         isAnonymous,
		ReviewWeight:        weight,
		AggregateRating:     aggregate,
		WeightedRating:      weighted,
		TotalQuestionsRated: totalRated,
		CreatedAt:           now,
	}
	if isAnonymous {
		review.UserID = nil
	}

	if err := s.reviews.Create(ctx, review, scores); err != nil {
		return nil, fmt.Errorf("persist review: %w", err)
	}

	// The stored average changed; drop the cached score.
	if err := s.scores.Invalidate(ctx, review.FreightForwarderID); err != nil {
		s.logger.WarnContext(ctx, "score cache invalidation failed",
			slog.String("provider_id", review.FreightForwarderID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	if _, err := s.scheduler.FanOut(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "subscription fan-out failed",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	if _, err := s.monitor.CheckProvider(ctx, review.FreightForwarderID); err != nil {
		s.logger.WarnContext(ctx, "threshold check failed",
			slog.String("provider_id", review.FreightForwarderID),
			slog.String("error", err.Error()),
		)
	}

	return review, nil
}

// GetReview returns a single review by ID.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	return s.reviews.GetByID(ctx, id)
}

// ListProviderReviews returns a page of a provider's reviews and the total
// count.
func (s *ReviewService) ListProviderReviews(ctx context.Context, providerID string, page, perPage int) ([]domain.Review, int, error) {
	return s.reviews.ListByProvider(ctx, providerID, page, perPage)
}

// GetScoreSummary returns the provider's current average and per-category
// rollup, computed fresh from narrow queries.
func (s *ReviewService) GetScoreSummary(ctx context.Context, providerID string) (*domain.ProviderScoreSummary, error) {
	ratings, err := s.reviews.AggregateRatings(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("load aggregate ratings: %w", err)
	}

	rows, err := s.reviews.CategoryScoreRows(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("load category scores: %w", err)
	}

	return &domain.ProviderScoreSummary{
		FreightForwarderID: providerID,
		AverageRating:      scoring.ProviderAverage(ratings),
		TotalReviews:       len(ratings),
		Categories:         scoring.CategoryRollup(rows),
	}, nil
}

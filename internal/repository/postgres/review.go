package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/pkg/database"
	apperrors "github.com/LogiScore/backend-sub000/pkg/errors"
)

// ReviewRepository implements review persistence using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts the review and its category scores atomically.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review, scores []domain.CategoryScore) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO reviews (id, freight_forwarder_id, user_id, country, city, review_type,
		                     is_anonymous, review_weight, aggregate_rating, weighted_rating,
		                     total_questions_rated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		review.ID,
		review.FreightForwarderID,
		review.UserID,
		review.Country,
		review.City,
		review.ReviewType,
		review.IsAnonymous,
		review.ReviewWeight,
		review.AggregateRating,
		review.WeightedRating,
		review.TotalQuestionsRated,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	for _, s := range scores {
		_, err = tx.Exec(ctx, `
			INSERT INTO category_scores (id, review_id, category_id, category_name, question_id,
			                             question_text, rating, weight, rating_definition, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			s.ID,
			s.ReviewID,
			s.CategoryID,
			s.CategoryName,
			s.QuestionID,
			s.QuestionText,
			s.Rating,
			s.Weight,
			s.RatingDefinition,
			s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert category score for question %s: %w", s.QuestionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}

	return nil
}

// GetByID returns a single review.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `
		SELECT id, freight_forwarder_id, user_id, country, city, review_type,
		       is_anonymous, review_weight, aggregate_rating, weighted_rating,
		       total_questions_rated, created_at
		FROM reviews
		WHERE id = $1`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rv.ID,
		&rv.FreightForwarderID,
		&rv.UserID,
		&rv.Country,
		&rv.City,
		&rv.ReviewType,
		&rv.IsAnonymous,
		&rv.ReviewWeight,
		&rv.AggregateRating,
		&rv.WeightedRating,
		&rv.TotalQuestionsRated,
		&rv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	return &rv, nil
}

// ListByProvider returns a page of a provider's reviews with the total count.
func (r *ReviewRepository) ListByProvider(ctx context.Context, providerID string, page, perPage int) ([]domain.Review, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	query := `
		SELECT id, freight_forwarder_id, user_id, country, city, review_type,
		       is_anonymous, review_weight, aggregate_rating, weighted_rating,
		       total_questions_rated, created_at,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE freight_forwarder_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, providerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.FreightForwarderID,
			&rv.UserID,
			&rv.Country,
			&rv.City,
			&rv.ReviewType,
			&rv.IsAnonymous,
			&rv.ReviewWeight,
			&rv.AggregateRating,
			&rv.WeightedRating,
			&rv.TotalQuestionsRated,
			&rv.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// AggregateRatings returns only the aggregate ratings of a provider's
// reviews, for computing the rolling average without loading full rows.
func (r *ReviewRepository) AggregateRatings(ctx context.Context, providerID string) ([]float64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT aggregate_rating FROM reviews WHERE freight_forwarder_id = $1`,
		providerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list aggregate ratings: %w", err)
	}
	defer rows.Close()

	var ratings []float64
	for rows.Next() {
		var rating float64
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("scan aggregate rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate ratings: %w", err)
	}

	return ratings, nil
}

// CategoryScoreRows returns the narrow category score projection for a
// provider's reviews.
func (r *ReviewRepository) CategoryScoreRows(ctx context.Context, providerID string) ([]domain.CategoryScoreRow, error) {
	query := `
		SELECT cs.review_id, cs.category_id, cs.category_name, cs.rating, cs.weight
		FROM category_scores cs
		JOIN reviews rv ON rv.id = cs.review_id
		WHERE rv.freight_forwarder_id = $1`

	rows, err := r.pool.Query(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("list category score rows: %w", err)
	}
	defer rows.Close()

	var result []domain.CategoryScoreRow
	for rows.Next() {
		var row domain.CategoryScoreRow
		if err := rows.Scan(&row.ReviewID, &row.CategoryID, &row.CategoryName, &row.Rating, &row.Weight); err != nil {
			return nil, fmt.Errorf("scan category score row: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category score rows: %w", err)
	}

	return result, nil
}

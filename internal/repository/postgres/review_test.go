package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/pkg/database"
	apperrors "github.com/LogiScore/backend-sub000/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

var fixedTime = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func setupReviewRepo(t *testing.T) (*ReviewRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewReviewRepository(mock)
	return repo, mock
}

func sampleReview() *domain.Review {
	userID := "user-001"
	return &domain.Review{
		ID:                  "review-001",
		FreightForwarderID:  "forwarder-001",
		UserID:              &userID,
		Country:             "Germany",
		City:                "Hamburg",
		ReviewType:          domain.ReviewTypeGeneral,
		IsAnonymous:         false,
		ReviewWeight:        1.0,
		AggregateRating:     4.0,
		WeightedRating:      4.0,
		TotalQuestionsRated: 3,
		CreatedAt:           fixedTime,
	}
}

func sampleScores(reviewID string) []domain.CategoryScore {
	return []domain.CategoryScore{
		{
			ID:           "score-001",
			ReviewID:     reviewID,
			CategoryID:   "responsiveness",
			CategoryName: "Responsiveness",
			QuestionID:   "q1",
			QuestionText: "How quickly did they respond?",
			Rating:       5,
			Weight:       1.0,
			CreatedAt:    fixedTime,
		},
		{
			ID:           "score-002",
			ReviewID:     reviewID,
			CategoryID:   "documentation",
			CategoryName: "Documentation",
			QuestionID:   "q2",
			QuestionText: "Was the paperwork accurate?",
			Rating:       3,
			Weight:       1.0,
			CreatedAt:    fixedTime,
		},
	}
}

func reviewColumns() []string {
	return []string{
		"id", "freight_forwarder_id", "user_id", "country", "city", "review_type",
		"is_anonymous", "review_weight", "aggregate_rating", "weighted_rating",
		"total_questions_rated", "created_at",
	}
}

func reviewRow(rv *domain.Review) *pgxmock.Rows {
	return pgxmock.NewRows(reviewColumns()).
		AddRow(
			rv.ID, rv.FreightForwarderID, rv.UserID, rv.Country, rv.City, rv.ReviewType,
			rv.IsAnonymous, rv.ReviewWeight, rv.AggregateRating, rv.WeightedRating,
			rv.TotalQuestionsRated, rv.CreatedAt,
		)
}

func expectReviewInsert(mock pgxmock.PgxPoolIface, rv *domain.Review) {
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(
			rv.ID, rv.FreightForwarderID, rv.UserID, rv.Country, rv.City, rv.ReviewType,
			rv.IsAnonymous, rv.ReviewWeight, rv.AggregateRating, rv.WeightedRating,
			rv.TotalQuestionsRated, rv.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func expectScoreInsert(mock pgxmock.PgxPoolIface, s domain.CategoryScore) {
	mock.ExpectExec("INSERT INTO category_scores").
		WithArgs(
			s.ID, s.ReviewID, s.CategoryID, s.CategoryName, s.QuestionID,
			s.QuestionText, s.Rating, s.Weight, s.RatingDefinition, s.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestReviewRepository_Create_Success(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()
	scores := sampleScores(rv.ID)

	mock.ExpectBegin()
	expectReviewInsert(mock, rv)
	for _, s := range scores {
		expectScoreInsert(mock, s)
	}
	mock.ExpectCommit()

	err := repo.Create(context.Background(), rv, scores)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_ScoreInsertFailureRollsBack(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()
	scores := sampleScores(rv.ID)

	mock.ExpectBegin()
	expectReviewInsert(mock, rv)
	mock.ExpectExec("INSERT INTO category_scores").
		WithArgs(
			scores[0].ID, scores[0].ReviewID, scores[0].CategoryID, scores[0].CategoryName,
			scores[0].QuestionID, scores[0].QuestionText, scores[0].Rating, scores[0].Weight,
			scores[0].RatingDefinition, scores[0].CreatedAt,
		).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), rv, scores)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert category score")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestReviewRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectQuery("SELECT .+ FROM reviews").
		WithArgs(rv.ID).
		WillReturnRows(reviewRow(rv))

	result, err := repo.GetByID(context.Background(), rv.ID)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, rv.ID, result.ID)
	assert.Equal(t, rv.FreightForwarderID, result.FreightForwarderID)
	assert.Equal(t, rv.UserID, result.UserID)
	assert.Equal(t, rv.AggregateRating, result.AggregateRating)
	assert.Equal(t, rv.WeightedRating, result.WeightedRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM reviews").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(reviewColumns()))

	result, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListByProvider
// ---------------------------------------------------------------------------

func TestReviewRepository_ListByProvider_Success(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()
	rows := pgxmock.NewRows(append(reviewColumns(), "total_count")).
		AddRow(
			rv.ID, rv.FreightForwarderID, rv.UserID, rv.Country, rv.City, rv.ReviewType,
			rv.IsAnonymous, rv.ReviewWeight, rv.AggregateRating, rv.WeightedRating,
			rv.TotalQuestionsRated, rv.CreatedAt, 42,
		)

	mock.ExpectQuery("SELECT .+ FROM reviews").
		WithArgs(rv.FreightForwarderID, 20, 20).
		WillReturnRows(rows)

	reviews, total, err := repo.ListByProvider(context.Background(), rv.FreightForwarderID, 2, 20)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
	assert.Equal(t, 42, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListByProvider_EmptyPage(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM reviews").
		WithArgs("forwarder-001", 20, 0).
		WillReturnRows(pgxmock.NewRows(append(reviewColumns(), "total_count")))

	reviews, total, err := repo.ListByProvider(context.Background(), "forwarder-001", 1, 20)
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// AggregateRatings / CategoryScoreRows
// ---------------------------------------------------------------------------

func TestReviewRepository_AggregateRatings(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"aggregate_rating"}).
		AddRow(5.0).
		AddRow(3.0)

	mock.ExpectQuery("SELECT aggregate_rating FROM reviews").
		WithArgs("forwarder-001").
		WillReturnRows(rows)

	ratings, err := repo.AggregateRatings(context.Background(), "forwarder-001")
	require.NoError(t, err)
	assert.Equal(t, []float64{5.0, 3.0}, ratings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_CategoryScoreRows(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"review_id", "category_id", "category_name", "rating", "weight"}).
		AddRow("review-001", "responsiveness", "Responsiveness", 5, 1.0).
		AddRow("review-002", "responsiveness", "Responsiveness", 3, 0.5)

	mock.ExpectQuery("SELECT .+ FROM category_scores").
		WithArgs("forwarder-001").
		WillReturnRows(rows)

	result, err := repo.CategoryScoreRows(context.Background(), "forwarder-001")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "responsiveness", result[0].CategoryID)
	assert.Equal(t, 0.5, result[1].Weight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

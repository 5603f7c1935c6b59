// Package scoring computes review-level and provider-level ratings. All
// functions are pure so they can be exercised without a database.
package scoring

import (
	"fmt"
	"math"

	"github.com/LogiScore/backend-sub000/internal/domain"
	apperrors "github.com/LogiScore/backend-sub000/pkg/errors"
)

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeReviewScores derives a review's aggregate and weighted ratings from
// its category scores.
//
// The aggregate is the arithmetic mean of every rating, including ratings of
// 0 ("not applicable"), so heavily-N/A reviews score lower. The weighted
// rating scales the aggregate by the reviewer-trust weight and is rounded to
// two decimals.
//
// An empty score list or any rating outside [0,5] is rejected before any
// write happens.
func ComputeReviewScores(scores []domain.CategoryScore, reviewWeight float64) (aggregate, weighted float64, totalRated int, err error) {
	if len(scores) == 0 {
		return 0, 0, 0, apperrors.InvalidInput("review must have at least one category score")
	}

	var sum float64
	for _, s := range scores {
		if s.Rating < domain.MinRating || s.Rating > domain.MaxRating {
			return 0, 0, 0, apperrors.InvalidInput(
				fmt.Sprintf("rating %d for question %s is out of range [%d,%d]",
					s.Rating, s.QuestionID, domain.MinRating, domain.MaxRating),
			)
		}
		sum += float64(s.Rating)
	}

	aggregate = round2(sum / float64(len(scores)))
	weighted = round2(aggregate * reviewWeight)
	return aggregate, weighted, len(scores), nil
}

// ProviderAverage returns the mean of the given review aggregate ratings, or
// 0.0 when there are none. It is recomputed on demand so every new review is
// reflected immediately.
func ProviderAverage(aggregates []float64) float64 {
	if len(aggregates) == 0 {
		return 0.0
	}

	var sum float64
	for _, a := range aggregates {
		sum += a
	}
	return round2(sum / float64(len(aggregates)))
}

// CategoryRollup aggregates category score rows into per-category averages.
// The average is the mean of rating × weight across all rows in the category.
// TotalReviews counts distinct reviews; ResponseCount counts rows, which
// exceeds TotalReviews whenever a category has multiple questions.
func CategoryRollup(rows []domain.CategoryScoreRow) map[string]domain.CategoryAggregate {
	type bucket struct {
		name    string
		sum     float64
		count   int
		reviews map[string]struct{}
	}

	buckets := make(map[string]*bucket)
	for _, row := range rows {
		b, ok := buckets[row.CategoryID]
		if !ok {
			b = &bucket{name: row.CategoryName, reviews: make(map[string]struct{})}
			buckets[row.CategoryID] = b
		}
		b.sum += float64(row.Rating) * row.Weight
		b.count++
		b.reviews[row.ReviewID] = struct{}{}
	}

	result := make(map[string]domain.CategoryAggregate, len(buckets))
	for id, b := range buckets {
		result[id] = domain.CategoryAggregate{
			CategoryID:    id,
			CategoryName:  b.name,
			AverageRating: round2(b.sum / float64(b.count)),
			TotalReviews:  len(b.reviews),
			ResponseCount: b.count,
		}
	}
	return result
}

package domain

import "time"

// Review types describe the kind of freight service being reviewed.
const (
	ReviewTypeGeneral     = "general"
	ReviewTypeImport      = "import"
	ReviewTypeExport      = "export"
	ReviewTypeDomestic    = "domestic"
	ReviewTypeWarehousing = "warehousing"
)

// ValidReviewTypes lists all accepted review types.
var ValidReviewTypes = []string{
	ReviewTypeGeneral,
	ReviewTypeImport,
	ReviewTypeExport,
	ReviewTypeDomestic,
	ReviewTypeWarehousing,
}

// IsValidReviewType reports whether t is an accepted review type.
func IsValidReviewType(t string) bool {
	for _, v := range ValidReviewTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Review weights scale a review's influence by reviewer trust.
const (
	WeightAnonymous     = 0.5
	WeightAuthenticated = 1.0
)

// Rating bounds for a single question.
const (
	MinRating = 0
	MaxRating = 5
)

// Review is one submitted rating of a freight forwarder. Aggregate and
// weighted ratings are derived from the category scores at creation time and
// never change afterward.
type Review struct {
	ID                  string    `json:"id"`
	FreightForwarderID  string    `json:"freight_forwarder_id"`
	UserID              *string   `json:"user_id,omitempty"`
	Country             string    `json:"country"`
	City                string    `json:"city"`
	ReviewType          string    `json:"review_type"`
	IsAnonymous         bool      `json:"is_anonymous"`
	ReviewWeight        float64   `json:"review_weight"`
	AggregateRating     float64   `json:"aggregate_rating"`
	WeightedRating      float64   `json:"weighted_rating"`
	TotalQuestionsRated int       `json:"total_questions_rated"`
	CreatedAt           time.Time `json:"created_at"`
}

// CategoryScore is one answered question within a review. A rating of 0 means
// "not applicable" but still participates in the aggregate.
type CategoryScore struct {
	ID               string    `json:"id"`
	ReviewID         string    `json:"review_id"`
	CategoryID       string    `json:"category_id"`
	CategoryName     string    `json:"category_name"`
	QuestionID       string    `json:"question_id"`
	QuestionText     string    `json:"question_text"`
	Rating           int       `json:"rating"`
	Weight           float64   `json:"weight"`
	RatingDefinition string    `json:"rating_definition,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CategoryScoreRow is the narrow projection used for provider-level category
// aggregation. Repositories return these instead of full reviews so the
// rollup never loads more than it needs.
type CategoryScoreRow struct {
	ReviewID     string
	CategoryID   string
	CategoryName string
	Rating       int
	Weight       float64
}

// CategoryAggregate is the per-category rollup for a provider.
// TotalReviews counts distinct reviews touching the category;
// ResponseCount counts answered questions, which is larger whenever a
// category has more than one question.
type CategoryAggregate struct {
	CategoryID    string  `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
	ResponseCount int     `json:"response_count"`
}

// ProviderScoreSummary combines the provider average with its category
// breakdown.
type ProviderScoreSummary struct {
	FreightForwarderID string                       `json:"freight_forwarder_id"`
	AverageRating      float64                      `json:"average_rating"`
	TotalReviews       int                          `json:"total_reviews"`
	Categories         map[string]CategoryAggregate `json:"categories"`
}

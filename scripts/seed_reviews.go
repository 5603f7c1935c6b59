// Package main implements a standalone seed script that populates the
// review service database with realistic freight forwarder reviews and a
// handful of subscriptions, so score summaries and digests have data to
// work with in development.
//
// Run: go run scripts/seed_reviews.go
//   (from the repo root, or: cd scripts && go run seed_reviews.go)
package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	totalForwarders   = 40
	reviewsPerMin     = 5
	reviewsPerMax     = 60
	subscriptionCount = 25
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// deterministicUUID produces a stable UUID-shaped string from a namespace and
// an integer index so that re-runs always produce the same IDs.
func deterministicUUID(namespace string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", namespace, index)))
	hex := fmt.Sprintf("%x", h[:16])
	return fmt.Sprintf("%s-%s-4%s-%x%s-%s",
		hex[0:8],
		hex[8:12],
		hex[13:16],
		0x8|(h[8]&0x3),
		hex[17:20],
		hex[20:32],
	)
}

type locale struct {
	Country string
	City    string
}

var locales = []locale{
	{"Germany", "Hamburg"},
	{"Germany", "Bremen"},
	{"Netherlands", "Rotterdam"},
	{"Belgium", "Antwerp"},
	{"Singapore", "Singapore"},
	{"China", "Shanghai"},
	{"China", "Shenzhen"},
	{"United States", "Los Angeles"},
	{"United States", "Newark"},
	{"United Arab Emirates", "Dubai"},
	{"United Kingdom", "Felixstowe"},
	{"Brazil", "Santos"},
}

type question struct {
	CategoryID   string
	CategoryName string
	QuestionID   string
	QuestionText string
}

var questions = []question{
	{"responsiveness", "Responsiveness", "resp_quote_speed", "How quickly did they respond to quote requests?"},
	{"responsiveness", "Responsiveness", "resp_issue_handling", "How quickly were issues acknowledged and handled?"},
	{"shipment_management", "Shipment Management", "ship_on_time", "Did shipments depart and arrive as scheduled?"},
	{"shipment_management", "Shipment Management", "ship_tracking", "Was tracking information accurate and current?"},
	{"documentation", "Documentation", "doc_accuracy", "Were bills of lading and customs documents accurate?"},
	{"documentation", "Documentation", "doc_timeliness", "Were documents delivered before deadlines?"},
	{"customer_experience", "Customer Experience", "cx_communication", "How clear was communication throughout the shipment?"},
	{"customer_experience", "Customer Experience", "cx_billing", "Were invoices correct and disputes resolved fairly?"},
}

var reviewTypes = []string{"general", "import", "export"}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func main() {
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "logiscore")
	pass := getEnv("POSTGRES_PASSWORD", "logiscore_secret")
	db := getEnv("REVIEW_DB_NAME", "review_db")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	rng := rand.New(rand.NewSource(42))
	start := time.Now()

	reviews, scores := seedReviews(ctx, pool, rng)
	subs := seedSubscriptions(ctx, pool, rng)

	log.Printf("seeded %d reviews, %d category scores, %d subscriptions in %s",
		reviews, scores, subs, time.Since(start).Round(time.Millisecond))
}

func seedReviews(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand) (int, int) {
	reviewCount := 0
	scoreCount := 0

	for f := 0; f < totalForwarders; f++ {
		forwarderID := deterministicUUID("forwarder", f)
		// Each forwarder gets a quality bias so averages spread out.
		bias := 1.5 + rng.Float64()*3.0
		n := reviewsPerMin + rng.Intn(reviewsPerMax-reviewsPerMin)

		for r := 0; r < n; r++ {
			reviewID := deterministicUUID("review", f*1000+r)
			loc := locales[rng.Intn(len(locales))]
			anonymous := rng.Float64() < 0.3
			weight := 1.0
			var userID *string
			if anonymous {
				weight = 0.5
			} else {
				id := deterministicUUID("user", rng.Intn(200))
				userID = &id
			}

			answered := questions[:2+rng.Intn(len(questions)-2)]
			total := 0
			ratings := make([]int, len(answered))
			for i := range answered {
				ratings[i] = clampRating(int(bias+rng.NormFloat64()*1.2), 0, 5)
				total += ratings[i]
			}
			aggregate := round2(float64(total) / float64(len(answered)))
			createdAt := time.Now().UTC().Add(-time.Duration(rng.Intn(120*24)) * time.Hour)

			_, err := pool.Exec(ctx, `
				INSERT INTO reviews (id, freight_forwarder_id, user_id, country, city, review_type,
				                     is_anonymous, review_weight, aggregate_rating, weighted_rating,
				                     total_questions_rated, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				ON CONFLICT (id) DO NOTHING`,
				reviewID, forwarderID, userID, loc.Country, loc.City,
				reviewTypes[rng.Intn(len(reviewTypes))],
				anonymous, weight, aggregate, round2(aggregate*weight),
				len(answered), createdAt,
			)
			if err != nil {
				log.Fatalf("insert review %s: %v", reviewID, err)
			}
			reviewCount++

			for i, q := range answered {
				scoreID := deterministicUUID("score", f*100000+r*100+i)
				_, err := pool.Exec(ctx, `
					INSERT INTO category_scores (id, review_id, category_id, category_name,
					                             question_id, question_text, rating, weight, created_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
					ON CONFLICT (id) DO NOTHING`,
					scoreID, reviewID, q.CategoryID, q.CategoryName,
					q.QuestionID, q.QuestionText, ratings[i], weight, createdAt,
				)
				if err != nil {
					log.Fatalf("insert category score %s: %v", scoreID, err)
				}
				scoreCount++
			}
		}
	}

	return reviewCount, scoreCount
}

func seedSubscriptions(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand) int {
	frequencies := []string{"immediate", "daily", "weekly"}
	count := 0

	for s := 0; s < subscriptionCount; s++ {
		subID := deterministicUUID("subscription", s)
		userID := deterministicUUID("user", rng.Intn(200))
		now := time.Now().UTC()

		var forwarderID, country *string
		switch rng.Intn(3) {
		case 0:
			id := deterministicUUID("forwarder", rng.Intn(totalForwarders))
			forwarderID = &id
		case 1:
			loc := locales[rng.Intn(len(locales))]
			country = &loc.Country
		}

		_, err := pool.Exec(ctx, `
			INSERT INTO review_subscriptions (id, user_id, freight_forwarder_id, country, city,
			                                  review_type, notification_frequency, is_active,
			                                  created_at, updated_at)
			VALUES ($1, $2, $3, $4, NULL, NULL, $5, TRUE, $6, $6)
			ON CONFLICT (id) DO NOTHING`,
			subID, userID, forwarderID, country,
			frequencies[rng.Intn(len(frequencies))], now,
		)
		if err != nil {
			log.Fatalf("insert subscription %s: %v", subID, err)
		}
		count++
	}

	return count
}

func clampRating(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

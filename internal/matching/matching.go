// Package matching decides which review subscriptions a new review applies
// to. It is pure: callers fetch candidate subscriptions and hand them in.
package matching

import "github.com/LogiScore/backend-sub000/internal/domain"

// FindMatches returns every active subscription whose filters accept the
// review. All matches apply (there is no precedence between specific and
// general subscriptions), but each subscription appears at most once no
// matter how its filters overlap.
func FindMatches(review *domain.Review, subs []domain.ReviewSubscription) []domain.ReviewSubscription {
	seen := make(map[string]struct{}, len(subs))
	var matches []domain.ReviewSubscription

	for _, sub := range subs {
		if _, dup := seen[sub.ID]; dup {
			continue
		}
		if sub.Matches(review) {
			seen[sub.ID] = struct{}{}
			matches = append(matches, sub)
		}
	}

	return matches
}

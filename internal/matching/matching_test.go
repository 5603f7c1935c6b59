package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LogiScore/backend-sub000/internal/domain"
)

func strPtr(s string) *string { return &s }

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:                 "rev-1",
		FreightForwarderID: "ff-1",
		Country:            "Germany",
		City:               "Hamburg",
		ReviewType:         domain.ReviewTypeImport,
	}
}

func activeSub(id string) domain.ReviewSubscription {
	return domain.ReviewSubscription{
		ID:                    id,
		UserID:                "user-" + id,
		NotificationFrequency: domain.FrequencyImmediate,
		IsActive:              true,
	}
}

func TestFindMatches_GeneralSubscriptionMatchesEverything(t *testing.T) {
	sub := activeSub("s1")

	matches := FindMatches(sampleReview(), []domain.ReviewSubscription{sub})

	require.Len(t, matches, 1)
	assert.Equal(t, "s1", matches[0].ID)
}

func TestFindMatches_ProviderFilterIgnoresLocation(t *testing.T) {
	sub := activeSub("s1")
	sub.FreightForwarderID = strPtr("ff-1")

	review := sampleReview()
	review.Country = "Japan"
	review.City = "Osaka"

	matches := FindMatches(review, []domain.ReviewSubscription{sub})
	assert.Len(t, matches, 1)
}

func TestFindMatches_ProviderFilterRejectsOtherProvider(t *testing.T) {
	sub := activeSub("s1")
	sub.FreightForwarderID = strPtr("ff-2")

	matches := FindMatches(sampleReview(), []domain.ReviewSubscription{sub})
	assert.Empty(t, matches)
}

func TestFindMatches_CountryWithoutCityMatchesAnyCity(t *testing.T) {
	sub := activeSub("s1")
	sub.Country = strPtr("Germany")

	review := sampleReview()
	review.City = "Munich"

	matches := FindMatches(review, []domain.ReviewSubscription{sub})
	assert.Len(t, matches, 1)
}

func TestFindMatches_CountryAndCityRequireBoth(t *testing.T) {
	sub := activeSub("s1")
	sub.Country = strPtr("Germany")
	sub.City = strPtr("Hamburg")

	matches := FindMatches(sampleReview(), []domain.ReviewSubscription{sub})
	require.Len(t, matches, 1)

	review := sampleReview()
	review.City = "Berlin"
	matches = FindMatches(review, []domain.ReviewSubscription{sub})
	assert.Empty(t, matches)
}

func TestFindMatches_LocationComparisonIsCaseInsensitive(t *testing.T) {
	sub := activeSub("s1")
	sub.Country = strPtr("germany")
	sub.City = strPtr("HAMBURG ")

	matches := FindMatches(sampleReview(), []domain.ReviewSubscription{sub})
	assert.Len(t, matches, 1)
}

func TestFindMatches_ReviewTypeFilter(t *testing.T) {
	matching := activeSub("s1")
	matching.ReviewType = strPtr(domain.ReviewTypeImport)

	other := activeSub("s2")
	other.ReviewType = strPtr(domain.ReviewTypeExport)

	matches := FindMatches(sampleReview(), []domain.ReviewSubscription{matching, other})

	require.Len(t, matches, 1)
	assert.Equal(t, "s1", matches[0].ID)
}

func TestFindMatches_InactiveNeverMatches(t *testing.T) {
	sub := activeSub("s1")
	sub.IsActive = false

	matches := FindMatches(sampleReview(), []domain.ReviewSubscription{sub})
	assert.Empty(t, matches)
}

func TestFindMatches_DeduplicatesBySubscriptionID(t *testing.T) {
	sub := activeSub("s1")

	matches := FindMatches(sampleReview(), []domain.ReviewSubscription{sub, sub})
	assert.Len(t, matches, 1)
}

func TestFindMatches_MultipleSubscribersAllMatch(t *testing.T) {
	general := activeSub("s1")

	provider := activeSub("s2")
	provider.FreightForwarderID = strPtr("ff-1")

	location := activeSub("s3")
	location.Country = strPtr("Germany")

	matches := FindMatches(sampleReview(), []domain.ReviewSubscription{general, provider, location})
	assert.Len(t, matches, 3)
}

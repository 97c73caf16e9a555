package ranking

import (
	"math"
	"testing"

	"github.com/tanglebrook/vicinity/internal/models"
)

func TestRankOrdersByTotalScore(t *testing.T) {
	origin := &models.Location{Latitude: 32.0853, Longitude: 34.7818}
	places := []models.PlaceItem{
		{PlaceID: "far-mediocre", Name: "Far Mediocre", Rating: 3.0, UserRatingsTotal: 10, Latitude: 32.2, Longitude: 35.0, OpenState: models.OpenStateClosed},
		{PlaceID: "near-great", Name: "Near Great", Rating: 4.8, UserRatingsTotal: 2000, Latitude: 32.086, Longitude: 34.782, OpenState: models.OpenStateOpen},
	}

	ranked := Rank(places, origin, BaseWeights(), 0)

	if ranked[0].Place.PlaceID != "near-great" {
		t.Errorf("Expected near-great first, got %s", ranked[0].Place.PlaceID)
	}
	if ranked[0].Rank != 1 || ranked[1].Rank != 2 {
		t.Errorf("Ranks not assigned sequentially: %d, %d", ranked[0].Rank, ranked[1].Rank)
	}
}

func TestRankStableOnTies(t *testing.T) {
	// Identical attributes produce identical scores; provider order must
	// survive the sort.
	places := []models.PlaceItem{
		{PlaceID: "a", Rating: 4.0, UserRatingsTotal: 100, OpenState: models.OpenStateOpen},
		{PlaceID: "b", Rating: 4.0, UserRatingsTotal: 100, OpenState: models.OpenStateOpen},
		{PlaceID: "c", Rating: 4.0, UserRatingsTotal: 100, OpenState: models.OpenStateOpen},
	}

	ranked := Rank(places, nil, BaseWeights(), 0)

	for i, id := range []string{"a", "b", "c"} {
		if ranked[i].Place.PlaceID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, ranked[i].Place.PlaceID)
		}
	}
}

func TestRankScoreBounds(t *testing.T) {
	// Degenerate inputs: missing attributes, zero coordinates, negative
	// review counts. Scores must stay finite and factors in [0,1].
	places := []models.PlaceItem{
		{PlaceID: "empty"},
		{PlaceID: "negative-reviews", UserRatingsTotal: -5},
		{PlaceID: "huge", Rating: 99, UserRatingsTotal: 1 << 40, PriceLevel: 99},
	}
	origin := &models.Location{Latitude: 32.0853, Longitude: 34.7818}

	ranked := Rank(places, origin, BaseWeights(), 0)

	for _, rp := range ranked {
		factors := []float64{rp.Scores.Rating, rp.Scores.Reviews, rp.Scores.Price, rp.Scores.OpenNow, rp.Scores.Distance}
		for _, f := range factors {
			if math.IsNaN(f) || f < 0 || f > 1 {
				t.Errorf("%s: factor score %v out of [0,1]", rp.Place.PlaceID, f)
			}
		}
		if math.IsNaN(rp.TotalScore) || rp.TotalScore < 0 {
			t.Errorf("%s: total score %v invalid", rp.Place.PlaceID, rp.TotalScore)
		}
	}
}

func TestRankHonorsMaxResults(t *testing.T) {
	places := make([]models.PlaceItem, 30)
	for i := range places {
		places[i] = models.PlaceItem{PlaceID: string(rune('a' + i))}
	}

	ranked := Rank(places, nil, BaseWeights(), 20)
	if len(ranked) != 20 {
		t.Errorf("Expected 20 results, got %d", len(ranked))
	}
	if ranked[len(ranked)-1].Rank != 20 {
		t.Errorf("Last rank should be 20, got %d", ranked[len(ranked)-1].Rank)
	}
}

func TestRankProximityWeightsChangeOrder(t *testing.T) {
	origin := &models.Location{Latitude: 32.0853, Longitude: 34.7818}
	places := []models.PlaceItem{
		{PlaceID: "far-excellent", Rating: 5.0, UserRatingsTotal: 5000, Latitude: 32.30, Longitude: 35.10, OpenState: models.OpenStateOpen},
		{PlaceID: "near-decent", Rating: 3.9, UserRatingsTotal: 150, Latitude: 32.0856, Longitude: 34.7820, OpenState: models.OpenStateOpen},
	}

	resolver := NewResolver(0.02, 0.60)
	proximityWeights, _ := resolver.ResolveWeights(models.IntentFlags{Proximity: true})

	baseRanked := Rank(places, origin, BaseWeights(), 0)
	proximityRanked := Rank(places, origin, proximityWeights, 0)

	// The near place must do at least as well under proximity weighting as
	// under base weighting.
	basePos := indexOf(baseRanked, "near-decent")
	proximityPos := indexOf(proximityRanked, "near-decent")
	if proximityPos > basePos {
		t.Errorf("Proximity weighting worsened the near place: base pos %d, proximity pos %d", basePos, proximityPos)
	}
}

func indexOf(ranked []models.RankedPlace, placeID string) int {
	for i, rp := range ranked {
		if rp.Place.PlaceID == placeID {
			return i
		}
	}
	return -1
}

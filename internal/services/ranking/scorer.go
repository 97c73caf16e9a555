package ranking

import (
	"sort"

	"github.com/tanglebrook/vicinity/internal/models"
)

// Rank scores candidates against the resolved weight vector and returns them
// ordered best-first. Ties keep the provider's original order (stable sort)
// so ranking stays deterministic and auditable. When origin is nil every
// candidate gets the maximum distance score, which leaves relative order
// unaffected.
func Rank(places []models.PlaceItem, origin *models.Location, weights models.WeightVector, maxResults int) []models.RankedPlace {
	ranked := make([]models.RankedPlace, len(places))

	for i, place := range places {
		distanceKm := 0.0
		if origin != nil && (place.Latitude != 0 || place.Longitude != 0) {
			distanceKm = HaversineKm(*origin, models.Location{
				Latitude:  place.Latitude,
				Longitude: place.Longitude,
			})
		}

		scores := models.FactorScores{
			Rating:   NormalizeRating(place.Rating),
			Reviews:  NormalizeReviews(place.UserRatingsTotal),
			Price:    NormalizePrice(place.PriceLevel),
			OpenNow:  NormalizeOpen(place.OpenState),
			Distance: NormalizeDistance(distanceKm),
		}

		total := weights.Rating*scores.Rating +
			weights.Reviews*scores.Reviews +
			weights.Price*scores.Price +
			weights.OpenNow*scores.OpenNow +
			weights.Distance*scores.Distance

		ranked[i] = models.RankedPlace{
			Place:      place,
			DistanceKm: distanceKm,
			Scores:     scores,
			TotalScore: total,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalScore > ranked[j].TotalScore
	})

	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

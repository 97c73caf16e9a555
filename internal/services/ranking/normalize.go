package ranking

import (
	"math"

	"github.com/tanglebrook/vicinity/internal/models"
)

const earthRadiusKm = 6371.0

// HaversineKm computes the great-circle distance between two coordinates
// in kilometers.
func HaversineKm(from, to models.Location) float64 {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180
	dLng := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// NormalizeRating maps a provider rating (0-5 scale) into [0,1].
func NormalizeRating(rating float64) float64 {
	return clamp01(rating / 5.0)
}

// NormalizeReviews maps a review count into [0,1] on a log scale.
// log10(count+1)/5 saturates around 100k reviews. Negative counts are
// treated as zero so the result is never NaN.
func NormalizeReviews(count int) float64 {
	if count < 0 {
		count = 0
	}
	return clamp01(math.Log10(float64(count)+1) / 5.0)
}

// NormalizeDistance maps a distance in kilometers into (0,1], decreasing
// monotonically with distance. Zero distance scores 1.
func NormalizeDistance(distanceKm float64) float64 {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		distanceKm = 0
	}
	return 1.0 / (1.0 + distanceKm)
}

// NormalizeOpen maps the tri-state open signal: open 1.0, closed 0.0,
// unknown 0.5.
func NormalizeOpen(state models.OpenState) float64 {
	switch state {
	case models.OpenStateOpen:
		return 1.0
	case models.OpenStateClosed:
		return 0.0
	default:
		return 0.5
	}
}

// NormalizePrice maps a provider price level (0 free to 4 expensive) into
// [0,1] with cheaper scoring higher. A zero level is indistinguishable from
// "not reported" in provider payloads, so it scores the neutral midpoint.
func NormalizePrice(priceLevel int) float64 {
	if priceLevel <= 0 {
		return 0.5
	}
	if priceLevel > 4 {
		priceLevel = 4
	}
	return clamp01(1.0 - float64(priceLevel-1)/4.0)
}

func clamp01(value float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

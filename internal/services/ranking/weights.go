package ranking

import (
	"github.com/tanglebrook/vicinity/internal/models"
)

// Base weight vector over {rating, reviews, price, openNow, distance}.
// Deltas from recognized intent flags are added on top, then the vector is
// clamped and renormalized so totals stay comparable across requests.
const (
	baseWeightRating   = 0.30
	baseWeightReviews  = 0.20
	baseWeightPrice    = 0.10
	baseWeightOpenNow  = 0.10
	baseWeightDistance = 0.30

	// weightTotal is the constant the resolved vector always sums to.
	weightTotal = 1.0
)

// Rule identifiers reported alongside the resolved vector so a result's
// ordering can be explained after the fact.
const (
	RuleProximityBoost = "proximity_distance_boost"
	RuleOpenNowBoost   = "open_now_boost"
	RuleBudgetBoost    = "budget_price_boost"
	RuleQualityBoost   = "quality_rating_boost"
)

// Resolver turns intent flags into a weight vector. Clamp bounds come from
// configuration; the rule table is fixed.
type Resolver struct {
	floor   float64
	ceiling float64
}

// NewResolver creates a weight resolver with the given clamp bounds.
func NewResolver(floor, ceiling float64) *Resolver {
	if floor <= 0 {
		floor = 0.02
	}
	if ceiling <= 0 || ceiling <= floor {
		ceiling = 0.60
	}
	return &Resolver{floor: floor, ceiling: ceiling}
}

// BaseWeights returns the unmodified base vector.
func BaseWeights() models.WeightVector {
	return models.WeightVector{
		Rating:   baseWeightRating,
		Reviews:  baseWeightReviews,
		Price:    baseWeightPrice,
		OpenNow:  baseWeightOpenNow,
		Distance: baseWeightDistance,
	}
}

// ResolveWeights maps intent flags onto a weight vector and the ordered list
// of applied rule identifiers. The function is pure: identical flags always
// produce identical output, independent of call order.
func (r *Resolver) ResolveWeights(flags models.IntentFlags) (models.WeightVector, []string) {
	weights := BaseWeights()
	applied := make([]string, 0, 4)

	// Rules apply in a fixed order so the applied-rule list is stable.
	if flags.Proximity {
		weights.Distance += 0.15
		applied = append(applied, RuleProximityBoost)
	}
	if flags.OpenNow {
		weights.OpenNow += 0.15
		applied = append(applied, RuleOpenNowBoost)
	}
	if flags.Budget {
		weights.Price += 0.15
		applied = append(applied, RuleBudgetBoost)
	}
	if flags.Quality {
		weights.Rating += 0.10
		weights.Reviews += 0.05
		applied = append(applied, RuleQualityBoost)
	}

	weights = r.clampVector(weights)
	weights = renormalize(weights)

	return weights, applied
}

func (r *Resolver) clampVector(w models.WeightVector) models.WeightVector {
	w.Rating = r.clamp(w.Rating)
	w.Reviews = r.clamp(w.Reviews)
	w.Price = r.clamp(w.Price)
	w.OpenNow = r.clamp(w.OpenNow)
	w.Distance = r.clamp(w.Distance)
	return w
}

func (r *Resolver) clamp(value float64) float64 {
	if value < r.floor {
		return r.floor
	}
	if value > r.ceiling {
		return r.ceiling
	}
	return value
}

// renormalize scales the vector so it sums to weightTotal.
func renormalize(w models.WeightVector) models.WeightVector {
	sum := w.Sum()
	if sum == 0 {
		return BaseWeights()
	}
	scale := weightTotal / sum
	w.Rating *= scale
	w.Reviews *= scale
	w.Price *= scale
	w.OpenNow *= scale
	w.Distance *= scale
	return w
}

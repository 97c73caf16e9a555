package models

// SearchRequest is the structured search request accepted at job creation.
type SearchRequest struct {
	Query    string    `json:"query" validate:"required,min=1,max=500"`
	Location *Location `json:"location,omitempty"`
	Filters  []string  `json:"filters,omitempty"`
	Region   string    `json:"region,omitempty" validate:"omitempty,len=2"`
	Language string    `json:"language,omitempty" validate:"omitempty,min=2,max=5"`
	RadiusM  int       `json:"radius_m,omitempty" validate:"omitempty,min=1,max=50000"`
}

// Location represents geographic coordinates.
type Location struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// OpenState is the tri-state open/closed signal from the provider.
type OpenState string

const (
	OpenStateOpen    OpenState = "open"
	OpenStateClosed  OpenState = "closed"
	OpenStateUnknown OpenState = "unknown"
)

// PlaceItem is one candidate entity returned by the POI provider.
type PlaceItem struct {
	PlaceID          string    `json:"place_id"`
	Name             string    `json:"name"`
	FormattedAddress string    `json:"formatted_address,omitempty"`
	Rating           float64   `json:"rating,omitempty"`
	UserRatingsTotal int       `json:"user_ratings_total,omitempty"`
	PriceLevel       int       `json:"price_level,omitempty"`
	Latitude         float64   `json:"latitude,omitempty"`
	Longitude        float64   `json:"longitude,omitempty"`
	Types            []string  `json:"types,omitempty"`
	OpenState        OpenState `json:"open_state,omitempty"`
}

// FactorScores holds the per-factor normalized scores for one candidate.
// Every value lies in [0,1].
type FactorScores struct {
	Rating   float64 `json:"rating"`
	Reviews  float64 `json:"reviews"`
	Price    float64 `json:"price"`
	OpenNow  float64 `json:"open_now"`
	Distance float64 `json:"distance"`
}

// WeightVector is the per-factor multiplier set used for scoring. Weights
// always sum to the same constant total after rule adjustments, so total
// scores are comparable across requests.
type WeightVector struct {
	Rating   float64 `json:"rating"`
	Reviews  float64 `json:"reviews"`
	Price    float64 `json:"price"`
	OpenNow  float64 `json:"open_now"`
	Distance float64 `json:"distance"`
}

// Sum returns the vector total.
func (w WeightVector) Sum() float64 {
	return w.Rating + w.Reviews + w.Price + w.OpenNow + w.Distance
}

// RankedPlace is a candidate after scoring, carrying enough metadata to
// explain its position.
type RankedPlace struct {
	Place      PlaceItem    `json:"place"`
	DistanceKm float64      `json:"distance_km,omitempty"`
	Scores     FactorScores `json:"scores"`
	TotalScore float64      `json:"total_score"`
	Rank       int          `json:"rank"`
}

// SearchOutcome distinguishes terminal success variants.
type SearchOutcome string

const (
	// OutcomeResults means the pipeline produced a ranked list.
	OutcomeResults SearchOutcome = "results"
	// OutcomeNeedsClarification means a proximity intent had no usable
	// location; the caller should re-submit with one.
	OutcomeNeedsClarification SearchOutcome = "needs_clarification"
)

// SearchResult is the terminal success payload of a job.
type SearchResult struct {
	Outcome        SearchOutcome `json:"outcome"`
	Places         []RankedPlace `json:"places,omitempty"`
	Weights        WeightVector  `json:"weights"`
	AppliedRuleIDs []string      `json:"applied_rule_ids,omitempty"`
	CacheHit       bool          `json:"cache_hit"`
	Clarification  string        `json:"clarification,omitempty"`
}

// PlaceDetails is the enrichment payload fetched in the background for
// entities that appeared near the top of a result list.
type PlaceDetails struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	PhoneNumber      string   `json:"phone_number,omitempty"`
	Website          string   `json:"website,omitempty"`
	OpeningHours     []string `json:"opening_hours,omitempty"`
}

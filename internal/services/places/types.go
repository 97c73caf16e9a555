package places

// searchResponse represents a Google Places search API response. The text
// and nearby endpoints share this envelope.
type searchResponse struct {
	Results      []placeResult `json:"results"`
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// detailsResponse represents the Google Place Details API response
type detailsResponse struct {
	Result       *detailsResult `json:"result,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// placeResult represents a single place result from the search endpoints
type placeResult struct {
	PlaceID          string        `json:"place_id"`
	Name             string        `json:"name"`
	FormattedAddress string        `json:"formatted_address,omitempty"`
	Vicinity         string        `json:"vicinity,omitempty"`
	Geometry         *geometry     `json:"geometry,omitempty"`
	OpeningHours     *openingHours `json:"opening_hours,omitempty"`
	PriceLevel       int           `json:"price_level,omitempty"`
	Rating           float64       `json:"rating,omitempty"`
	Types            []string      `json:"types,omitempty"`
	UserRatingsTotal int           `json:"user_ratings_total,omitempty"`
	BusinessStatus   string        `json:"business_status,omitempty"`
}

// detailsResult represents the detail payload for one place
type detailsResult struct {
	PlaceID              string        `json:"place_id"`
	Name                 string        `json:"name"`
	FormattedAddress     string        `json:"formatted_address,omitempty"`
	FormattedPhoneNumber string        `json:"formatted_phone_number,omitempty"`
	Website              string        `json:"website,omitempty"`
	OpeningHours         *openingHours `json:"opening_hours,omitempty"`
}

// geometry represents the geometry information of a place
type geometry struct {
	Location *latLng `json:"location,omitempty"`
}

// latLng represents a geographic coordinate
type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// openingHours represents the opening hours of a place. OpenNow is a
// pointer so an absent field stays distinguishable from "closed".
type openingHours struct {
	OpenNow     *bool    `json:"open_now,omitempty"`
	WeekdayText []string `json:"weekday_text,omitempty"`
}

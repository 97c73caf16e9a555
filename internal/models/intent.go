package models

// IntentFlags is the small, language-agnostic signal set extracted from a
// query. The extractor is best-effort; ConservativeIntent supplies the
// deterministic fallback when extraction fails.
type IntentFlags struct {
	Proximity    bool   `json:"proximity"`
	OpenNow      bool   `json:"open_now"`
	Budget       bool   `json:"budget"`
	Quality      bool   `json:"quality"`
	CategoryKey  string `json:"category_key,omitempty"`
	LocationText string `json:"location_text,omitempty"`
}

// ConservativeIntent returns the safe default used when intent extraction
// fails: all flags off, no category, no location.
func ConservativeIntent() IntentFlags {
	return IntentFlags{}
}

// CanonicalMode is the deterministic query-construction mode decided by the
// mode policy. It is never delegated to the LLM.
type CanonicalMode string

const (
	// ModeKeyed means both a location anchor and a category anchor are
	// present, so the provider query is built from structured parameters.
	ModeKeyed CanonicalMode = "keyed"
	// ModeFreeText means the query is passed through as provider free text.
	ModeFreeText CanonicalMode = "free_text"
	// ModeNeedsClarification means a proximity intent is present but no
	// location is available from either the request or the query text.
	ModeNeedsClarification CanonicalMode = "needs_clarification"
)

// QueryKind tags the mapped provider-query variant. Every consumer must
// switch on the tag before touching kind-specific fields.
type QueryKind string

const (
	QueryKindText   QueryKind = "text_search"
	QueryKindNearby QueryKind = "nearby_search"
)

// MappedQuery is the tagged variant holding the exact parameters for the
// provider call. Text fields are only valid when Kind == QueryKindText;
// Location/CategoryType only when Kind == QueryKindNearby.
type MappedQuery struct {
	Kind QueryKind `json:"kind"`

	// QueryKindText fields
	Text string `json:"text,omitempty"`

	// QueryKindNearby fields
	Location     *Location `json:"location,omitempty"`
	CategoryType string    `json:"category_type,omitempty"`
	Keyword      string    `json:"keyword,omitempty"`

	// Common fields
	RadiusM  int    `json:"radius_m,omitempty"`
	Region   string `json:"region,omitempty"`
	Language string `json:"language,omitempty"`
}

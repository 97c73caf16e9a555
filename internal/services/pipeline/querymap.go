package pipeline

import (
	"strings"

	"github.com/tanglebrook/vicinity/internal/models"
)

// BuildQuery constructs the provider query deterministically from the
// request, the extracted flags and the decided mode. The language model never
// writes the final query string; at most it contributed the category key and
// location text that feed this builder.
func BuildQuery(req *models.SearchRequest, flags models.IntentFlags, mode models.CanonicalMode, table *CategoryTable, defaultRadiusM int) *models.MappedQuery {
	radius := req.RadiusM
	if radius <= 0 {
		radius = defaultRadiusM
	}

	category, known := table.Lookup(flags.CategoryKey)
	if mode == models.ModeKeyed && known {
		return &models.MappedQuery{
			Kind:         models.QueryKindNearby,
			Location:     req.Location,
			CategoryType: category.ProviderType,
			Keyword:      strings.TrimSpace(req.Query),
			RadiusM:      radius,
			Region:       req.Region,
			Language:     req.Language,
		}
	}

	text := strings.TrimSpace(req.Query)
	// A location found in the query text stays in the text; only an anchor
	// the provider would otherwise not see is appended.
	if req.Location == nil && flags.LocationText != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(flags.LocationText)) {
		text = text + " near " + flags.LocationText
	}

	return &models.MappedQuery{
		Kind:     models.QueryKindText,
		Text:     text,
		Location: req.Location,
		RadiusM:  radius,
		Region:   req.Region,
		Language: req.Language,
	}
}

package pipeline

import (
	"strings"

	"github.com/tanglebrook/vicinity/internal/models"
)

// ladderStep records how far the category relaxation ladder had to go.
type ladderStep int

const (
	// ladderStrict means the provider-type filter kept enough results.
	ladderStrict ladderStep = iota
	// ladderSoft means alias matching against names and types was needed.
	ladderSoft
	// ladderBroadened means filtering would have starved the result set; the
	// caller should fall back to the unfiltered candidates or re-query.
	ladderBroadened
)

// enforceCategory filters candidates against the intended category with a
// strict -> soft -> broadened relaxation ladder. A sample at or below
// minResults is never reduced to zero: when filtering would starve it, the
// original set is kept and the broadened step reported.
func enforceCategory(places []models.PlaceItem, category *Category, minResults int) ([]models.PlaceItem, ladderStep) {
	if category == nil || len(places) == 0 {
		return places, ladderStrict
	}

	strict := filterByType(places, category.ProviderType)
	if len(strict) >= minResults {
		return strict, ladderStrict
	}

	soft := filterByAlias(places, category)
	if len(soft) >= minResults {
		return soft, ladderSoft
	}

	if len(places) <= minResults {
		return places, ladderBroadened
	}
	if len(soft) > 0 {
		return soft, ladderSoft
	}
	return places, ladderBroadened
}

func filterByType(places []models.PlaceItem, providerType string) []models.PlaceItem {
	var kept []models.PlaceItem
	for _, place := range places {
		if hasType(place, providerType) {
			kept = append(kept, place)
		}
	}
	return kept
}

// filterByAlias keeps places whose type list or name mentions the category or
// one of its aliases.
func filterByAlias(places []models.PlaceItem, category *Category) []models.PlaceItem {
	terms := make([]string, 0, len(category.Aliases)+2)
	terms = append(terms, strings.ToLower(category.Key), strings.ToLower(category.ProviderType))
	for _, alias := range category.Aliases {
		terms = append(terms, strings.ToLower(alias))
	}

	var kept []models.PlaceItem
	for _, place := range places {
		if matchesAnyTerm(place, terms) {
			kept = append(kept, place)
		}
	}
	return kept
}

func hasType(place models.PlaceItem, providerType string) bool {
	for _, t := range place.Types {
		if strings.EqualFold(t, providerType) {
			return true
		}
	}
	return false
}

func matchesAnyTerm(place models.PlaceItem, terms []string) bool {
	name := strings.ToLower(place.Name)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(name, term) {
			return true
		}
		for _, t := range place.Types {
			if strings.Contains(strings.ToLower(t), term) {
				return true
			}
		}
	}
	return false
}

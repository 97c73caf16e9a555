package pipeline

import (
	"strings"

	"github.com/tanglebrook/vicinity/internal/models"
)

// DecideMode is the canonical mode policy. It is a pure function of the
// request and the extracted flags: the same inputs always yield the same
// mode, and the decision is never delegated to the language model.
//
// Keyed mode requires both anchors: coordinates on the request and a category
// the vocabulary recognizes. A proximity intent with no location available
// from either the request or the query text cannot be answered and asks the
// caller to clarify.
func DecideMode(req *models.SearchRequest, flags models.IntentFlags, table *CategoryTable) models.CanonicalMode {
	hasLocation := req.Location != nil || strings.TrimSpace(flags.LocationText) != ""
	if flags.Proximity && !hasLocation {
		return models.ModeNeedsClarification
	}

	if req.Location != nil {
		if _, known := table.Lookup(flags.CategoryKey); known {
			return models.ModeKeyed
		}
	}

	return models.ModeFreeText
}

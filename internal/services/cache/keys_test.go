package cache

import (
	"strings"
	"testing"

	"github.com/tanglebrook/vicinity/internal/models"
)

func TestSearchKeyEquivalentRequestsCollide(t *testing.T) {
	first := &models.SearchRequest{
		Query:    "pizza",
		Location: &models.Location{Latitude: 32.0853, Longitude: 34.7818},
		Filters:  []string{},
	}
	second := &models.SearchRequest{
		Query:    "  Pizza  ",
		Location: &models.Location{Latitude: 32.08531, Longitude: 34.78179},
		Filters:  []string{},
	}

	if SearchKey(first, models.ModeFreeText) != SearchKey(second, models.ModeFreeText) {
		t.Error("Equivalent requests must hash to the same cache key")
	}
}

func TestSearchKeyFilterOrderInsensitive(t *testing.T) {
	first := &models.SearchRequest{
		Query:   "coffee",
		Filters: []string{"open_now", "cheap", "open_now"},
	}
	second := &models.SearchRequest{
		Query:   "COFFEE",
		Filters: []string{"Cheap", " open_now "},
	}

	if SearchKey(first, models.ModeFreeText) != SearchKey(second, models.ModeFreeText) {
		t.Error("Filter order, case and duplicates must not change the key")
	}
}

func TestSearchKeyWhitespaceCollapsed(t *testing.T) {
	first := &models.SearchRequest{Query: "best   pizza\tnear me"}
	second := &models.SearchRequest{Query: "Best Pizza Near Me"}

	if SearchKey(first, models.ModeFreeText) != SearchKey(second, models.ModeFreeText) {
		t.Error("Internal whitespace runs must collapse before hashing")
	}
}

func TestSearchKeyDistinguishesMeaningfulDifferences(t *testing.T) {
	base := &models.SearchRequest{
		Query:    "pizza",
		Location: &models.Location{Latitude: 32.0853, Longitude: 34.7818},
	}

	variants := []*models.SearchRequest{
		{Query: "sushi", Location: base.Location},
		{Query: "pizza", Location: &models.Location{Latitude: 31.0853, Longitude: 34.7818}},
		{Query: "pizza", Location: base.Location, RadiusM: 1000},
		{Query: "pizza", Location: base.Location, Region: "il"},
		{Query: "pizza", Location: base.Location, Language: "he"},
		{Query: "pizza", Location: base.Location, Filters: []string{"open_now"}},
	}

	baseKey := SearchKey(base, models.ModeFreeText)
	for i, variant := range variants {
		if SearchKey(variant, models.ModeFreeText) == baseKey {
			t.Errorf("Variant %d should produce a different key", i)
		}
	}

	if SearchKey(base, models.ModeKeyed) == baseKey {
		t.Error("Canonical mode must participate in the key")
	}
}

func TestSearchKeyCoordinatePrecisionBoundary(t *testing.T) {
	base := &models.SearchRequest{
		Query:    "pizza",
		Location: &models.Location{Latitude: 32.0853, Longitude: 34.7818},
	}
	// A shift at the 3rd decimal (~110 m) must change the key.
	moved := &models.SearchRequest{
		Query:    "pizza",
		Location: &models.Location{Latitude: 32.0863, Longitude: 34.7818},
	}

	if SearchKey(base, models.ModeFreeText) == SearchKey(moved, models.ModeFreeText) {
		t.Error("Coordinate differences above the rounding precision must change the key")
	}
}

func TestKeyPrefixes(t *testing.T) {
	req := &models.SearchRequest{Query: "pizza"}
	key := SearchKey(req, models.ModeFreeText)

	if !strings.HasPrefix(key, SearchKeyPrefix) {
		t.Errorf("Search key missing prefix: %s", key)
	}

	inFlight := InFlightKey(key)
	if !strings.HasPrefix(inFlight, InFlightKeyPrefix) {
		t.Errorf("In-flight key missing prefix: %s", inFlight)
	}
	if strings.Contains(inFlight, SearchKeyPrefix) {
		t.Errorf("In-flight key should not nest the search prefix: %s", inFlight)
	}

	if EnrichLockKey("p1") != EnrichLockKeyPrefix+"p1" {
		t.Error("Unexpected enrichment lock key shape")
	}
}

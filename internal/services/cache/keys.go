// Package cache implements the cache-aside guard in front of the places
// provider: stable key derivation, a specificity-based TTL policy, and
// concurrent duplicate suppression via an in-flight marker.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/tanglebrook/vicinity/internal/models"
)

const (
	// SearchKeyPrefix namespaces memoized provider responses.
	SearchKeyPrefix = "places:search:"

	// InFlightKeyPrefix namespaces in-flight duplicate-suppression markers.
	InFlightKeyPrefix = "places:inflight:"

	// EnrichLockKeyPrefix namespaces per-entity enrichment locks.
	EnrichLockKeyPrefix = "lock:details:"

	// coordPrecision rounds coordinates to 4 decimal places (~11 m), so
	// requests from the same spot hash identically.
	coordPrecision = 4
)

// SearchKey derives the stable cache key for a search request. The key is
// insensitive to presentation-only input variance: query casing and
// whitespace, filter ordering, and coordinate precision beyond 4 decimals.
func SearchKey(req *models.SearchRequest, mode models.CanonicalMode) string {
	var b strings.Builder

	b.WriteString("q=")
	b.WriteString(normalizeQuery(req.Query))

	b.WriteString("|mode=")
	b.WriteString(string(mode))

	b.WriteString("|loc=")
	if req.Location != nil {
		b.WriteString(roundCoord(req.Location.Latitude))
		b.WriteString(",")
		b.WriteString(roundCoord(req.Location.Longitude))
	}

	b.WriteString("|filters=")
	b.WriteString(normalizeFilters(req.Filters))

	b.WriteString("|radius=")
	fmt.Fprintf(&b, "%d", req.RadiusM)

	b.WriteString("|region=")
	b.WriteString(strings.ToLower(strings.TrimSpace(req.Region)))

	b.WriteString("|lang=")
	b.WriteString(strings.ToLower(strings.TrimSpace(req.Language)))

	digest := sha256.Sum256([]byte(b.String()))
	return SearchKeyPrefix + hex.EncodeToString(digest[:])
}

// InFlightKey derives the duplicate-suppression marker key for a search key.
func InFlightKey(searchKey string) string {
	return InFlightKeyPrefix + strings.TrimPrefix(searchKey, SearchKeyPrefix)
}

// EnrichLockKey derives the per-entity lock key for background enrichment.
func EnrichLockKey(placeID string) string {
	return EnrichLockKeyPrefix + placeID
}

// normalizeQuery lowercases and collapses all whitespace runs to single
// spaces, trimming the ends.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// normalizeFilters lowercases, trims, de-duplicates and sorts the filter set
// so ordering never changes the key.
func normalizeFilters(filters []string) string {
	if len(filters) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(filters))
	cleaned := make([]string, 0, len(filters))
	for _, f := range filters {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		cleaned = append(cleaned, f)
	}

	sort.Strings(cleaned)
	return strings.Join(cleaned, ",")
}

// roundCoord formats a coordinate at fixed precision. Formatting (rather
// than float rounding) keeps the representation exact and portable.
func roundCoord(value float64) string {
	return fmt.Sprintf("%.*f", coordPrecision, value)
}

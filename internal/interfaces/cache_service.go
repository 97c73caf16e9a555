package interfaces

import (
	"context"

	"github.com/tanglebrook/vicinity/internal/models"
)

// SearchFetchFunc computes a search result on cache miss.
type SearchFetchFunc func(ctx context.Context) (*models.SearchResult, error)

// CacheService is the cache-aside guard in front of the places provider.
//
// GetOrFetch returns the cached result when one exists. On a miss it ensures
// at most one concurrent caller executes fetch for a given key; losers wait
// briefly for the winner's result and fall through to their own fetch only
// if it never appears. The boolean reports whether the result came from
// cache.
type CacheService interface {
	GetOrFetch(ctx context.Context, req *models.SearchRequest, mode models.CanonicalMode, fetch SearchFetchFunc) (*models.SearchResult, bool, error)
}

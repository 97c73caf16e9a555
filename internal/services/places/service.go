package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
	"golang.org/x/time/rate"
)

const (
	textSearchURL   = "https://maps.googleapis.com/maps/api/place/textsearch/json"
	nearbySearchURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	detailsURL      = "https://maps.googleapis.com/maps/api/place/details/json"
)

// Service implements the PlacesService interface against the Google Places
// API. Errors are returned classified so the pipeline can map them onto the
// failure taxonomy without inspecting transport details.
type Service struct {
	config     *common.PlacesAPIConfig
	logger     arbor.ILogger
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewService creates a new Places service instance
func NewService(
	config *common.PlacesAPIConfig,
	kvStorage interfaces.KeyValueStorage,
	logger arbor.ILogger,
) interfaces.PlacesService {
	// Resolve API key with KV-first resolution order: KV store -> config fallback
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "google_places_api_key", config.APIKey)
	if err != nil {
		apiKey = config.APIKey
		logger.Warn().Err(err).Msg("Failed to resolve Places API key from KV store, using config value")
	}

	interval := config.RateLimit
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &Service{
		config: config,
		logger: logger,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Search executes the mapped provider query and returns raw place items
func (s *Service) Search(ctx context.Context, query *models.MappedQuery) ([]models.PlaceItem, error) {
	if query == nil {
		return nil, models.NewClassifiedError(models.ErrorKindInternal, fmt.Errorf("mapped query is nil"))
	}

	var results []placeResult
	var err error

	switch query.Kind {
	case models.QueryKindText:
		results, err = s.textSearch(ctx, query)
	case models.QueryKindNearby:
		if query.Location == nil {
			return nil, models.NewClassifiedError(models.ErrorKindInternal, fmt.Errorf("location is required for nearby search"))
		}
		results, err = s.nearbySearch(ctx, query)
	default:
		return nil, models.NewClassifiedError(models.ErrorKindInternal, fmt.Errorf("unsupported query kind: %s", query.Kind))
	}

	if err != nil {
		return nil, err
	}

	items := make([]models.PlaceItem, len(results))
	for i, result := range results {
		items[i] = convertToPlaceItem(result)
	}

	return items, nil
}

// GetDetails fetches extended detail for a single place
func (s *Service) GetDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	if placeID == "" {
		return nil, models.NewClassifiedError(models.ErrorKindInternal, fmt.Errorf("place_id is required"))
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,formatted_address,formatted_phone_number,website,opening_hours")
	params.Set("key", s.apiKey)

	s.logger.Debug().
		Str("url", fmt.Sprintf("%s?place_id=%s&key=***REDACTED***", detailsURL, url.QueryEscape(placeID))).
		Msg("Calling Place Details API")

	body, err := s.doRequest(ctx, detailsURL, params)
	if err != nil {
		return nil, err
	}

	var apiResp detailsResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, models.NewClassifiedError(models.ErrorKindSchemaInvalid, fmt.Errorf("failed to decode details response: %w", err))
	}

	if apiResp.Status == "NOT_FOUND" || apiResp.Result == nil {
		return nil, models.NewClassifiedError(models.ErrorKindNotFound, fmt.Errorf("place %s not found", placeID))
	}
	if apiResp.Status != "OK" {
		return nil, models.NewClassifiedError(models.ErrorKindUpstreamHTTP, fmt.Errorf("API error: %s - %s", apiResp.Status, apiResp.ErrorMessage))
	}

	details := &models.PlaceDetails{
		PlaceID:          apiResp.Result.PlaceID,
		Name:             apiResp.Result.Name,
		FormattedAddress: apiResp.Result.FormattedAddress,
		PhoneNumber:      apiResp.Result.FormattedPhoneNumber,
		Website:          apiResp.Result.Website,
	}
	if apiResp.Result.OpeningHours != nil {
		details.OpeningHours = apiResp.Result.OpeningHours.WeekdayText
	}

	return details, nil
}

// textSearch performs a Google Places Text Search
func (s *Service) textSearch(ctx context.Context, query *models.MappedQuery) ([]placeResult, error) {
	params := url.Values{}
	params.Set("query", query.Text)
	if query.Region != "" {
		params.Set("region", query.Region)
	}
	if query.Language != "" {
		params.Set("language", query.Language)
	}
	params.Set("key", s.apiKey)

	s.logger.Debug().
		Str("url", fmt.Sprintf("%s?query=%s&key=***REDACTED***", textSearchURL, url.QueryEscape(query.Text))).
		Msg("Calling Places Text Search API")

	results, err := s.search(ctx, textSearchURL, params)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("query", query.Text).
		Int("results_count", len(results)).
		Msg("Places text search completed")

	return results, nil
}

// nearbySearch performs a Google Places Nearby Search
func (s *Service) nearbySearch(ctx context.Context, query *models.MappedQuery) ([]placeResult, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", query.Location.Latitude, query.Location.Longitude))
	if query.RadiusM > 0 {
		params.Set("radius", fmt.Sprintf("%d", query.RadiusM))
	} else {
		params.Set("radius", "5000")
	}
	if query.CategoryType != "" {
		params.Set("type", query.CategoryType)
	}
	if query.Keyword != "" {
		params.Set("keyword", query.Keyword)
	}
	if query.Language != "" {
		params.Set("language", query.Language)
	}
	params.Set("key", s.apiKey)

	s.logger.Debug().
		Float64("latitude", query.Location.Latitude).
		Float64("longitude", query.Location.Longitude).
		Int("radius", query.RadiusM).
		Str("type", query.CategoryType).
		Msg("Calling Places Nearby Search API")

	results, err := s.search(ctx, nearbySearchURL, params)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("type", query.CategoryType).
		Int("results_count", len(results)).
		Msg("Places nearby search completed")

	return results, nil
}

// search executes one search request and decodes the shared envelope
func (s *Service) search(ctx context.Context, apiURL string, params url.Values) ([]placeResult, error) {
	body, err := s.doRequest(ctx, apiURL, params)
	if err != nil {
		return nil, err
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, models.NewClassifiedError(models.ErrorKindSchemaInvalid, fmt.Errorf("failed to decode search response: %w", err))
	}

	if apiResp.Status != "OK" && apiResp.Status != "ZERO_RESULTS" {
		return nil, models.NewClassifiedError(models.ErrorKindUpstreamHTTP, fmt.Errorf("API error: %s - %s", apiResp.Status, apiResp.ErrorMessage))
	}

	maxResults := s.config.MaxResultsPerSearch
	if maxResults > 0 && len(apiResp.Results) > maxResults {
		apiResp.Results = apiResp.Results[:maxResults]
	}

	return apiResp.Results, nil
}

// doRequest performs one rate-limited HTTP call and classifies transport
// failures: DNS resolution, timeouts, aborts, and non-2xx responses each map
// to their own kind.
func (s *Service) doRequest(ctx context.Context, apiURL string, params url.Values) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, models.NewClassifiedError(models.ErrorKindAborted, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", apiURL, params.Encode()), nil)
	if err != nil {
		return nil, models.NewClassifiedError(models.ErrorKindInternal, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, models.NewClassifiedError(models.Classify(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewClassifiedError(models.Classify(err), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.NewClassifiedError(models.ErrorKindUpstreamHTTP,
			fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body)))
	}

	return body, nil
}

// convertToPlaceItem converts a provider result to a PlaceItem model.
// The open flag is tri-state: the provider omitting opening_hours (or
// open_now within it) yields OpenStateUnknown, never "closed".
func convertToPlaceItem(place placeResult) models.PlaceItem {
	item := models.PlaceItem{
		PlaceID:          place.PlaceID,
		Name:             place.Name,
		FormattedAddress: place.FormattedAddress,
		Rating:           place.Rating,
		UserRatingsTotal: place.UserRatingsTotal,
		PriceLevel:       place.PriceLevel,
		Types:            place.Types,
		OpenState:        models.OpenStateUnknown,
	}

	if item.FormattedAddress == "" {
		item.FormattedAddress = place.Vicinity
	}

	if place.Geometry != nil && place.Geometry.Location != nil {
		item.Latitude = place.Geometry.Location.Lat
		item.Longitude = place.Geometry.Location.Lng
	}

	if place.OpeningHours != nil && place.OpeningHours.OpenNow != nil {
		if *place.OpeningHours.OpenNow {
			item.OpenState = models.OpenStateOpen
		} else {
			item.OpenState = models.OpenStateClosed
		}
	}

	return item
}

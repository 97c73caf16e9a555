package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/models"
	"golang.org/x/time/rate"
)

func newTestService(timeout time.Duration) *Service {
	return &Service{
		config: &common.PlacesAPIConfig{
			MaxResultsPerSearch: 20,
		},
		logger:     arbor.NewLogger(),
		apiKey:     "test-key",
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
}

func TestConvertToPlaceItemOpenState(t *testing.T) {
	openNow := true
	closedNow := false

	tests := []struct {
		name     string
		hours    *openingHours
		expected models.OpenState
	}{
		{"open", &openingHours{OpenNow: &openNow}, models.OpenStateOpen},
		{"closed", &openingHours{OpenNow: &closedNow}, models.OpenStateClosed},
		{"open_now omitted", &openingHours{}, models.OpenStateUnknown},
		{"opening_hours omitted", nil, models.OpenStateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := convertToPlaceItem(placeResult{
				PlaceID:      "p1",
				Name:         "Cafe",
				OpeningHours: tt.hours,
			})
			if item.OpenState != tt.expected {
				t.Errorf("OpenState = %s, want %s", item.OpenState, tt.expected)
			}
		})
	}
}

func TestConvertToPlaceItemFallsBackToVicinity(t *testing.T) {
	item := convertToPlaceItem(placeResult{
		PlaceID:  "p1",
		Name:     "Cafe",
		Vicinity: "12 High St, Richmond",
	})
	if item.FormattedAddress != "12 High St, Richmond" {
		t.Errorf("Expected vicinity fallback, got %q", item.FormattedAddress)
	}
}

func TestSearchDecodesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"place_id": "p1", "name": "Cafe One", "rating": 4.5, "user_ratings_total": 120,
				 "geometry": {"location": {"lat": -37.81, "lng": 144.96}},
				 "opening_hours": {"open_now": true}}
			]
		}`))
	}))
	defer server.Close()

	service := newTestService(time.Second)
	results, err := service.search(context.Background(), server.URL, url.Values{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Name != "Cafe One" || results[0].Geometry.Location.Lat != -37.81 {
		t.Errorf("Unexpected result: %+v", results[0])
	}
}

func TestSearchZeroResultsIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer server.Close()

	service := newTestService(time.Second)
	results, err := service.search(context.Background(), server.URL, url.Values{})
	if err != nil {
		t.Fatalf("Expected no error for zero results, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty results, got %d", len(results))
	}
}

func TestSearchClassifiesUpstreamHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	service := newTestService(time.Second)
	_, err := service.search(context.Background(), server.URL, url.Values{})
	if err == nil {
		t.Fatal("Expected error for 502 response")
	}
	if kind := models.Classify(err); kind != models.ErrorKindUpstreamHTTP {
		t.Errorf("Expected UPSTREAM_HTTP_ERROR, got %s", kind)
	}
}

func TestSearchClassifiesAPIStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "invalid key"}`))
	}))
	defer server.Close()

	service := newTestService(time.Second)
	_, err := service.search(context.Background(), server.URL, url.Values{})
	if err == nil {
		t.Fatal("Expected error for REQUEST_DENIED status")
	}
	if kind := models.Classify(err); kind != models.ErrorKindUpstreamHTTP {
		t.Errorf("Expected UPSTREAM_HTTP_ERROR, got %s", kind)
	}
}

func TestSearchClassifiesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"status": "OK", "results": []}`))
	}))
	defer server.Close()

	service := newTestService(50 * time.Millisecond)
	_, err := service.search(context.Background(), server.URL, url.Values{})
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if kind := models.Classify(err); kind != models.ErrorKindTimeout {
		t.Errorf("Expected TIMEOUT, got %s", kind)
	}
}

func TestSearchClassifiesSchemaInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	service := newTestService(time.Second)
	_, err := service.search(context.Background(), server.URL, url.Values{})
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if kind := models.Classify(err); kind != models.ErrorKindSchemaInvalid {
		t.Errorf("Expected SCHEMA_INVALID, got %s", kind)
	}
}

func TestSearchRejectsUnknownQueryKind(t *testing.T) {
	service := newTestService(time.Second)
	_, err := service.Search(context.Background(), &models.MappedQuery{Kind: "fuzzy"})
	if err == nil {
		t.Fatal("Expected error for unknown query kind")
	}
}

func TestNearbySearchRequiresLocation(t *testing.T) {
	service := newTestService(time.Second)
	_, err := service.Search(context.Background(), &models.MappedQuery{Kind: models.QueryKindNearby})
	if err == nil {
		t.Fatal("Expected error for nearby search without location")
	}
}

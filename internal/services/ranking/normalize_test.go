package ranking

import (
	"math"
	"testing"

	"github.com/tanglebrook/vicinity/internal/models"
)

func TestNormalizeRating(t *testing.T) {
	tests := []struct {
		rating   float64
		expected float64
	}{
		{0, 0},
		{2.5, 0.5},
		{5, 1},
		{7, 1},  // out-of-range clamps
		{-1, 0}, // negative clamps
	}

	for _, tt := range tests {
		if got := NormalizeRating(tt.rating); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("NormalizeRating(%v) = %v, want %v", tt.rating, got, tt.expected)
		}
	}
}

func TestNormalizeReviewsNeverNaN(t *testing.T) {
	for _, count := range []int{-100, -1, 0, 1, 9, 99, 100000, 1 << 30} {
		got := NormalizeReviews(count)
		if math.IsNaN(got) || got < 0 || got > 1 {
			t.Errorf("NormalizeReviews(%d) = %v out of [0,1]", count, got)
		}
	}

	if NormalizeReviews(0) != 0 {
		t.Error("Zero reviews should score 0")
	}
	if NormalizeReviews(9) >= NormalizeReviews(99) {
		t.Error("More reviews should score higher")
	}
}

func TestNormalizeDistance(t *testing.T) {
	if NormalizeDistance(0) != 1.0 {
		t.Error("Zero distance should score 1")
	}
	if NormalizeDistance(1) != 0.5 {
		t.Error("1 km should score 0.5")
	}
	if NormalizeDistance(10) >= NormalizeDistance(1) {
		t.Error("Farther should score lower")
	}
	if got := NormalizeDistance(math.NaN()); math.IsNaN(got) {
		t.Error("NaN input must not produce NaN output")
	}
}

func TestNormalizeOpenTriState(t *testing.T) {
	if NormalizeOpen(models.OpenStateOpen) != 1.0 {
		t.Error("Open should score 1.0")
	}
	if NormalizeOpen(models.OpenStateClosed) != 0.0 {
		t.Error("Closed should score 0.0")
	}
	if NormalizeOpen(models.OpenStateUnknown) != 0.5 {
		t.Error("Unknown should score 0.5")
	}
	if NormalizeOpen("") != 0.5 {
		t.Error("Missing state should score 0.5")
	}
}

func TestHaversineKm(t *testing.T) {
	telAviv := models.Location{Latitude: 32.0853, Longitude: 34.7818}
	jerusalem := models.Location{Latitude: 31.7683, Longitude: 35.2137}

	distance := HaversineKm(telAviv, jerusalem)
	if distance < 50 || distance > 60 {
		t.Errorf("Tel Aviv to Jerusalem should be ~54 km, got %v", distance)
	}

	if HaversineKm(telAviv, telAviv) != 0 {
		t.Error("Distance to self should be zero")
	}
}

package geo

import (
	"math"
	"testing"

	"delivery-tracking-service/internal/domain"
)

func TestDistanceMeters(t *testing.T) {
	// Paris -> London, roughly 343.5 km.
	paris := domain.Coordinate{Latitude: 48.8566, Longitude: 2.3522}
	london := domain.Coordinate{Latitude: 51.5074, Longitude: -0.1278}

	d := DistanceMeters(paris, london)
	if d < 340000 || d > 347000 {
		t.Fatalf("Paris-London distance = %.0f m, want ~343500 m", d)
	}

	if d := DistanceMeters(paris, paris); d != 0 {
		t.Fatalf("distance to self = %f, want 0", d)
	}

	// Symmetry.
	if back := DistanceMeters(london, paris); math.Abs(back-d) > 1e-6 {
		t.Fatalf("distance not symmetric: %f vs %f", d, back)
	}
}

func TestIsOffRouteEmptyPath(t *testing.T) {
	pos := domain.Coordinate{Latitude: 24.02, Longitude: -104.65}
	if !IsOffRoute(pos, nil, 150) {
		t.Fatal("empty path must always be off route")
	}
}

func TestIsOffRouteThreshold(t *testing.T) {
	path := []domain.Coordinate{
		{Latitude: 24.02, Longitude: -104.65},
		{Latitude: 24.025, Longitude: -104.655},
		{Latitude: 24.03, Longitude: -104.66},
	}

	onPath := domain.Coordinate{Latitude: 24.0251, Longitude: -104.6551}
	if IsOffRoute(onPath, path, 150) {
		t.Fatal("position ~15 m from a path point reported off route at 150 m")
	}

	// ~0.01 degrees of latitude is ~1.1 km from every path point.
	far := domain.Coordinate{Latitude: 24.04, Longitude: -104.65}
	if !IsOffRoute(far, path, 150) {
		t.Fatal("position ~1 km from the path reported on route at 150 m")
	}
}

func TestIsOffRouteThresholdMonotonic(t *testing.T) {
	path := []domain.Coordinate{
		{Latitude: 24.02, Longitude: -104.65},
		{Latitude: 24.03, Longitude: -104.66},
	}
	positions := []domain.Coordinate{
		{Latitude: 24.02, Longitude: -104.65},
		{Latitude: 24.021, Longitude: -104.651},
		{Latitude: 24.05, Longitude: -104.7},
		{Latitude: 25, Longitude: -105},
	}
	thresholds := []float64{50, 150, 500, 5000, 100000}

	for _, pos := range positions {
		for i, large := range thresholds {
			for _, small := range thresholds[:i] {
				// Off route at a large threshold implies off route at any
				// smaller one.
				if IsOffRoute(pos, path, large) && !IsOffRoute(pos, path, small) {
					t.Fatalf("monotonicity violated at pos=%+v large=%f small=%f", pos, large, small)
				}
			}
		}
	}
}

// Package geo holds the distance math shared by the tracking controller and
// the stop reconciler.
package geo

import (
	"math"

	"delivery-tracking-service/internal/domain"
)

const earthRadiusMeters = 6371000

// DistanceMeters returns the great-circle distance between a and b using the
// haversine formula.
func DistanceMeters(a, b domain.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// MinDistanceToPath returns the smallest distance from position to any sampled
// point of path, or +Inf for an empty path.
func MinDistanceToPath(position domain.Coordinate, path []domain.Coordinate) float64 {
	min := math.Inf(1)
	for _, p := range path {
		if d := DistanceMeters(position, p); d < min {
			min = d
		}
	}
	return min
}

// IsOffRoute reports whether position is farther than thresholdMeters from
// every sampled point of path. This is a point-sampling approximation of
// distance-to-polyline, adequate because routing services return densely
// sampled paths. An empty path is always off route, which forces the initial
// route computation.
func IsOffRoute(position domain.Coordinate, path []domain.Coordinate, thresholdMeters float64) bool {
	return MinDistanceToPath(position, path) > thresholdMeters
}

package domain

import "math"

// CoordEpsilonDegrees is the tolerance used when matching coordinates that
// passed through serialization or a lossy path encoding (~11 m at the equator).
const CoordEpsilonDegrees = 1e-4

// Immutable geographic coordinate (latitude, longitude) in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Matches reports whether both components of c and other agree within the
// epsilon tolerance. Coordinates are never compared with ==.
func (c Coordinate) Matches(other Coordinate) bool {
	return math.Abs(c.Latitude-other.Latitude) <= CoordEpsilonDegrees &&
		math.Abs(c.Longitude-other.Longitude) <= CoordEpsilonDegrees
}

// IsValid reports whether the coordinate is inside the WGS84 value range.
func (c Coordinate) IsValid() bool {
	return !math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude) &&
		c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

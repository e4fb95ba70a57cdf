// Package polyline implements the compact ASCII path encoding used by routing
// services: zig-zag signed deltas packed into 5-bit groups with a continuation
// bit at 0x20, at a fixed-point scale of 1e5.
package polyline

import (
	"math"

	"delivery-tracking-service/internal/domain"
)

// Decode converts a service-generated encoded path into an ordered coordinate
// sequence. An empty string decodes to an empty sequence. Input is expected to
// be service-generated; malformed strings are a precondition violation and
// simply produce a truncated sequence.
func Decode(encoded string) []domain.Coordinate {
	if encoded == "" {
		return nil
	}

	coords := make([]domain.Coordinate, 0, len(encoded)/4)
	index := 0
	lat := 0
	lng := 0

	for index < len(encoded) {
		latDelta, next := decodeValue(encoded, index)
		index = next
		lat += latDelta

		lngDelta, next := decodeValue(encoded, index)
		index = next
		lng += lngDelta

		coords = append(coords, domain.Coordinate{
			Latitude:  float64(lat) / 1e5,
			Longitude: float64(lng) / 1e5,
		})
	}

	return coords
}

// decodeValue reads one varint-style delta starting at index and returns the
// signed value along with the index of the next unread byte.
func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode is the inverse of Decode for coordinates rounded to 5 decimal places.
func Encode(coords []domain.Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(coords)*4)
	prevLat := 0
	prevLng := 0

	for _, c := range coords {
		lat := int(math.Round(c.Latitude * 1e5))
		lng := int(math.Round(c.Longitude * 1e5))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lng-prevLng)

		prevLat = lat
		prevLng = lng
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	buf = append(buf, byte(value)+63)

	return buf
}

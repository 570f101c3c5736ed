// Package polyline provides encoding and decoding utilities for Google's polyline algorithm
// together with the great-circle helpers the routing engine measures routes with.
// The polyline algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"fmt"
	"math"

	gopolyline "github.com/twpayne/go-polyline"
)

// ErrMalformedGeometry indicates an encoded polyline contained an invalid byte or
// ended in the middle of a value.
var ErrMalformedGeometry = errors.New("malformed polyline geometry")

// precision is the 5-decimal-place scale used by Google and most directions providers.
const precision = 1e5

// Coordinate represents a geographic point with latitude and longitude in WGS-84 degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinate lies within [-90, 90] x [-180, 180].
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Decode decodes a polyline-encoded string into a slice of coordinates.
//
// Decoding stops at the first invalid byte or truncated value. The coordinates decoded
// before the fault are returned together with an error wrapping ErrMalformedGeometry, so
// callers can keep the usable prefix. Points that decode outside the valid WGS-84 range
// are skipped.
func Decode(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	buf := []byte(encoded)
	var coords []Coordinate
	lat := 0
	lon := 0

	for len(buf) > 0 {
		delta, rest, err := gopolyline.DecodeCoord(buf)
		if err != nil {
			return coords, fmt.Errorf("%w at offset %d: %v", ErrMalformedGeometry, len(encoded)-len(buf), err)
		}
		buf = rest

		// Accumulate in integer units so decoded values are exact.
		lat += int(math.Round(delta[0] * precision))
		lon += int(math.Round(delta[1] * precision))

		c := Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		}
		if !c.Valid() {
			continue
		}
		coords = append(coords, c)
	}

	return coords, nil
}

// Encode encodes a slice of coordinates into a polyline-encoded string.
// Invalid coordinates are dropped.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	points := make([][]float64, 0, len(coords))
	for _, c := range coords {
		if !c.Valid() {
			continue
		}
		points = append(points, []float64{c.Lat, c.Lon})
	}
	if len(points) == 0 {
		return ""
	}

	return string(gopolyline.EncodeCoords(points))
}

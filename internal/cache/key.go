package cache

import (
	"fmt"
	"math"
)

// GridKey quantizes a coordinate to a grid cell of cellDegrees so nearby points share
// cached data. The result is formatted with enough decimals to keep cells distinct.
func GridKey(lat, lon, cellDegrees float64) string {
	if cellDegrees <= 0 {
		cellDegrees = 0.001
	}
	gridLat := cell(lat, cellDegrees)
	gridLon := cell(lon, cellDegrees)

	decimals := int(math.Max(0, math.Ceil(-math.Log10(cellDegrees)-1e-9)))
	return fmt.Sprintf("%.*f,%.*f", decimals, gridLat, decimals, gridLon)
}

// cell floors v to its cell. The epsilon keeps values sitting exactly on a
// boundary, such as 12.9716 at 0.00001, from landing one cell low when the
// division rounds down.
func cell(v, size float64) float64 {
	return math.Floor(v/size+1e-9) * size
}

package polyline

import "math"

// EarthRadiusMeters is the mean Earth radius used by all distance helpers.
const EarthRadiusMeters = 6371000

// Haversine calculates the great-circle distance between two coordinates in meters.
// The result is symmetric and zero only when a == b.
func Haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Bearing returns the initial bearing from a to b in degrees within [0, 360).
func Bearing(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	deg = math.Mod(deg+360, 360)
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// Destination returns the point reached by travelling distanceMeters from origin
// along the given initial bearing (degrees).
func Destination(origin Coordinate, bearingDeg, distanceMeters float64) Coordinate {
	lat1 := origin.Lat * math.Pi / 180
	lon1 := origin.Lon * math.Pi / 180
	brng := bearingDeg * math.Pi / 180
	d := distanceMeters / EarthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)

	lonDeg := math.Mod(lon2*180/math.Pi+540, 360) - 180
	return Coordinate{Lat: lat2 * 180 / math.Pi, Lon: lonDeg}
}

// Length calculates the total length of a polyline in meters using the haversine formula.
func Length(coords []Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += Haversine(coords[i-1], coords[i])
	}
	return total
}

// SampleEvenly returns at most n points spread evenly by index along coords,
// always including the first and last point.
func SampleEvenly(coords []Coordinate, n int) []Coordinate {
	if len(coords) == 0 || n <= 0 {
		return nil
	}
	if len(coords) <= n {
		out := make([]Coordinate, len(coords))
		copy(out, coords)
		return out
	}
	if n == 1 {
		return []Coordinate{coords[0]}
	}

	out := make([]Coordinate, 0, n)
	last := len(coords) - 1
	prev := -1
	for i := 0; i < n; i++ {
		idx := int(math.Round(float64(i) * float64(last) / float64(n-1)))
		if idx == prev {
			continue
		}
		out = append(out, coords[idx])
		prev = idx
	}
	return out
}

// Interpolate returns a straight path from a to b with points roughly spacingMeters apart.
// Both endpoints are always included.
func Interpolate(a, b Coordinate, spacingMeters float64) []Coordinate {
	dist := Haversine(a, b)
	if dist == 0 {
		return []Coordinate{a}
	}
	if spacingMeters <= 0 || dist <= spacingMeters {
		return []Coordinate{a, b}
	}

	segments := int(math.Ceil(dist / spacingMeters))
	out := make([]Coordinate, 0, segments+1)
	for i := 0; i <= segments; i++ {
		f := float64(i) / float64(segments)
		out = append(out, Coordinate{
			Lat: a.Lat + f*(b.Lat-a.Lat),
			Lon: a.Lon + f*(b.Lon-a.Lon),
		})
	}
	out[len(out)-1] = b
	return out
}

// DistanceToSegment returns the distance in meters from p to the segment a-b.
// It projects onto a local equirectangular plane centred on p, which is accurate
// for the sub-kilometre distances navigation works with.
func DistanceToSegment(p, a, b Coordinate) float64 {
	if a == b {
		return Haversine(p, a)
	}

	cosLat := math.Cos(p.Lat * math.Pi / 180)
	toXY := func(c Coordinate) (float64, float64) {
		x := (c.Lon - p.Lon) * math.Pi / 180 * cosLat * EarthRadiusMeters
		y := (c.Lat - p.Lat) * math.Pi / 180 * EarthRadiusMeters
		return x, y
	}

	ax, ay := toXY(a)
	bx, by := toXY(b)
	dx := bx - ax
	dy := by - ay

	t := -(ax*dx + ay*dy) / (dx*dx + dy*dy)
	switch {
	case t <= 0:
		return Haversine(p, a)
	case t >= 1:
		return Haversine(p, b)
	}

	px := ax + t*dx
	py := ay + t*dy
	return math.Hypot(px, py)
}

// DistanceToPolyline returns the minimum distance in meters from p to any segment of
// coords. It returns +Inf for an empty polyline.
func DistanceToPolyline(p Coordinate, coords []Coordinate) float64 {
	switch len(coords) {
	case 0:
		return math.Inf(1)
	case 1:
		return Haversine(p, coords[0])
	}

	minDistance := math.Inf(1)
	for i := 1; i < len(coords); i++ {
		if d := DistanceToSegment(p, coords[i-1], coords[i]); d < minDistance {
			minDistance = d
		}
	}
	return minDistance
}

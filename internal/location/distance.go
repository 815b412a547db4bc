package location

import (
	"math"

	"github.com/twpayne/go-geom"
)

const (
	// EarthRadiusMiles is the mean Earth radius used for great-circle distance.
	EarthRadiusMiles = 3959.0
	// MilesPerDegree approximates one degree of latitude. The bounding box applies
	// it to longitude as well, so the box over-fetches away from the equator.
	MilesPerDegree = 69.0
)

// HaversineMiles returns the great-circle distance between a and b in miles.
func HaversineMiles(a, b Coord) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusMiles * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// BoundsAround returns the coarse pre-filter box for a radius search. X is
// longitude and Y is latitude, matching geom.XY.
func BoundsAround(center Coord, radiusMiles float64) *geom.Bounds {
	delta := radiusMiles / MilesPerDegree
	return geom.NewBounds(geom.XY).Set(
		center.Lng-delta, center.Lat-delta,
		center.Lng+delta, center.Lat+delta,
	)
}

package location

import (
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
)

func s2Miles(a, b Coord) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng))
	return angle.Radians() * EarthRadiusMiles
}

func TestHaversineMiles_MatchesS2(t *testing.T) {
	pairs := []struct {
		name string
		a, b Coord
	}{
		{"atlanta to new york", Coord{33.749, -84.388}, Coord{40.7128, -74.006}},
		{"los angeles to san francisco", Coord{34.0522, -118.2437}, Coord{37.7749, -122.4194}},
		{"across antimeridian", Coord{51.5, 179.5}, Coord{51.5, -179.5}},
		{"equator quarter turn", Coord{0, 0}, Coord{0, 90}},
		{"pole to pole", Coord{90, 0}, Coord{-90, 0}},
		{"short hop", midtownAtlanta, Coord{33.7748, -84.2963}},
	}
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			want := s2Miles(p.a, p.b)
			assert.InDelta(t, want, HaversineMiles(p.a, p.b), want*1e-9+1e-6)
		})
	}
}

func TestHaversineMiles_SymmetryAndIdentity(t *testing.T) {
	points := []Coord{
		midtownAtlanta, {40.7128, -74.006}, {-33.8688, 151.2093}, {64.2008, -149.4937}, {0, 0},
	}
	for _, a := range points {
		assert.Equal(t, 0.0, HaversineMiles(a, a))
		for _, b := range points {
			assert.InDelta(t, HaversineMiles(a, b), HaversineMiles(b, a), 1e-9)
			assert.GreaterOrEqual(t, HaversineMiles(a, b), 0.0)
		}
	}
}

func TestHaversineMiles_KnownDistance(t *testing.T) {
	// One degree of arc is 2*pi*R/360.
	assert.InDelta(t, 69.09, HaversineMiles(Coord{0, 0}, Coord{1, 0}), 0.01)
}

func TestBoundsAround(t *testing.T) {
	b := BoundsAround(midtownAtlanta, 69)
	assert.InDelta(t, midtownAtlanta.Lng-1, b.Min(0), 1e-12)
	assert.InDelta(t, midtownAtlanta.Lng+1, b.Max(0), 1e-12)
	assert.InDelta(t, midtownAtlanta.Lat-1, b.Min(1), 1e-12)
	assert.InDelta(t, midtownAtlanta.Lat+1, b.Max(1), 1e-12)
}

func TestBoundsAround_SupersetOfRadius(t *testing.T) {
	radius := 50.0
	b := BoundsAround(midtownAtlanta, radius)
	inside := 0
	for dLat := -1.5; dLat <= 1.5; dLat += 0.05 {
		for dLng := -1.5; dLng <= 1.5; dLng += 0.05 {
			pt := Coord{Lat: midtownAtlanta.Lat + dLat, Lng: midtownAtlanta.Lng + dLng}
			if HaversineMiles(midtownAtlanta, pt) > radius {
				continue
			}
			inside++
			assert.True(t, pt.Lat >= b.Min(1) && pt.Lat <= b.Max(1), "lat %v", pt)
			assert.True(t, pt.Lng >= b.Min(0) && pt.Lng <= b.Max(0), "lng %v", pt)
		}
	}
	assert.Greater(t, inside, 100)
}

package location

import (
	"sort"
	"strings"
)

// EnrichCities normalizes candidates, measures their distance from center and
// keeps rows within radiusMiles that have a population of at least 1. The
// result is sorted by ascending distance.
func EnrichCities(records []Record, center Coord, radiusMiles float64) []EnrichedCity {
	cities := make([]EnrichedCity, 0, len(records))
	for _, r := range records {
		d := HaversineMiles(center, Coord{Lat: r.Latitude, Lng: r.Longitude})
		demo := normalizeDemographics(r)
		if d > radiusMiles || demo.Population < 1 {
			continue
		}
		cities = append(cities, EnrichedCity{
			City:          r.City,
			StateName:     r.StateName,
			StateID:       strings.ToUpper(strings.TrimSpace(r.StateID)),
			CountyName:    strings.TrimSpace(r.CountyName),
			PostalCode:    r.PostalCode,
			Latitude:      r.Latitude,
			Longitude:     r.Longitude,
			Demographics:  demo,
			DistanceMiles: d,
		})
	}
	sort.SliceStable(cities, func(i, j int) bool {
		return cities[i].DistanceMiles < cities[j].DistanceMiles
	})
	return cities
}

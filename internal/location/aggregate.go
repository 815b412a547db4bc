package location

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

type countyKey struct {
	county string
	state  string
}

// AggregateCounties groups cities by (county, state) and computes the
// population-weighted roll-up for each group. Cities without a county are
// dropped. center may be nil, in which case every distance is 0.
func AggregateCounties(cities []EnrichedCity, center *Coord) []CountyAggregate {
	withCounty := lo.Filter(cities, func(c EnrichedCity, _ int) bool {
		return c.CountyName != ""
	})
	groups := lo.GroupBy(withCounty, func(c EnrichedCity) countyKey {
		return countyKey{county: c.CountyName, state: c.StateID}
	})

	counties := make([]CountyAggregate, 0, len(groups))
	for key, members := range groups {
		counties = append(counties, aggregateCounty(key, members, center))
	}
	sort.SliceStable(counties, func(i, j int) bool {
		a, b := counties[i], counties[j]
		if a.DistanceMiles != b.DistanceMiles {
			return a.DistanceMiles < b.DistanceMiles
		}
		if a.StateID != b.StateID {
			return a.StateID < b.StateID
		}
		return a.CountyName < b.CountyName
	})
	return counties
}

func aggregateCounty(key countyKey, members []EnrichedCity, center *Coord) CountyAggregate {
	n := float64(len(members))
	centroid := Coord{
		Lat: lo.SumBy(members, func(c EnrichedCity) float64 { return c.Latitude }) / n,
		Lng: lo.SumBy(members, func(c EnrichedCity) float64 { return c.Longitude }) / n,
	}

	var distance float64
	if center != nil {
		distance = HaversineMiles(*center, centroid)
	}

	totalPop := lo.SumBy(members, func(c EnrichedCity) float64 { return c.Population })
	weighted := func(field func(EnrichedCity) float64) float64 {
		if totalPop == 0 {
			return 0
		}
		return lo.SumBy(members, func(c EnrichedCity) float64 { return field(c) * c.Population }) / totalPop
	}

	return CountyAggregate{
		CountyName:               key.county,
		StateID:                  key.state,
		StateName:                members[0].StateName,
		CityCount:                len(members),
		TotalPopulation:          totalPop,
		TotalHousingUnits:        lo.SumBy(members, func(c EnrichedCity) float64 { return c.HousingUnits }),
		TotalVeterans:            lo.SumBy(members, func(c EnrichedCity) float64 { return c.Veteran }),
		AvgAgeMedian:             round1(weighted(func(c EnrichedCity) float64 { return c.AgeMedian })),
		AvgIncomeHouseholdMedian: math.Round(weighted(func(c EnrichedCity) float64 { return c.IncomeHouseholdMedian })),
		AvgHomeValue:             math.Round(weighted(func(c EnrichedCity) float64 { return c.HomeValue })),
		AvgHomeOwnership:         round1(weighted(func(c EnrichedCity) float64 { return c.HomeOwnership })),
		CenterLat:                centroid.Lat,
		CenterLng:                centroid.Lng,
		DistanceMiles:            distance,
		Timezone:                 TimezoneForState(key.state),
		Cities:                   members,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

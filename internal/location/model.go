// Package location implements the geo-radius search behind the Location Builder:
// postal code resolution, bounding-box candidate fetch, great-circle distance
// filtering, county roll-up and the criteria filter applied on top of it.
package location

import (
	"math"
	"strings"
)

// Coord is a WGS84 point in decimal degrees.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Center is the resolved origin of a search.
type Center struct {
	PostalCode string `json:"postal_code"`
	City       string `json:"city,omitempty"`
	StateName  string `json:"state_name,omitempty"`
	Coord      *Coord `json:"coords"`
}

// Record is a raw location_data row. Demographic columns are untyped because the
// dataset stores them as text, numbers or NULL; Normalize turns them into floats.
type Record struct {
	City                  string
	StateName             string
	StateID               string
	CountyName            string
	PostalCode            string
	Latitude              float64
	Longitude             float64
	Population            any
	AgeMedian             any
	IncomeHouseholdMedian any
	HousingUnits          any
	HomeValue             any
	HomeOwnership         any
	Veteran               any
}

// Demographics holds the normalized numeric columns of a city row.
type Demographics struct {
	Population            float64 `json:"population"`
	AgeMedian             float64 `json:"age_median"`
	IncomeHouseholdMedian float64 `json:"income_household_median"`
	HousingUnits          float64 `json:"housing_units"`
	HomeValue             float64 `json:"home_value"`
	HomeOwnership         float64 `json:"home_ownership"`
	Veteran               float64 `json:"veteran"`
}

// EnrichedCity is a normalized city row with its distance from the search center.
type EnrichedCity struct {
	City       string  `json:"city"`
	StateName  string  `json:"state_name"`
	StateID    string  `json:"state_id"`
	CountyName string  `json:"county_name"`
	PostalCode string  `json:"postal_code"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Demographics
	DistanceMiles float64 `json:"distance_miles"`
}

// CountyAggregate rolls up every city of one county found inside the radius.
type CountyAggregate struct {
	CountyName               string         `json:"county_name"`
	StateID                  string         `json:"state_id"`
	StateName                string         `json:"state_name"`
	CityCount                int            `json:"city_count"`
	TotalPopulation          float64        `json:"total_population"`
	TotalHousingUnits        float64        `json:"total_housing_units"`
	TotalVeterans            float64        `json:"total_veterans"`
	AvgAgeMedian             float64        `json:"avg_age_median"`
	AvgIncomeHouseholdMedian float64        `json:"avg_income_household_median"`
	AvgHomeValue             float64        `json:"avg_home_value"`
	AvgHomeOwnership         float64        `json:"avg_home_ownership"`
	CenterLat                float64        `json:"center_lat"`
	CenterLng                float64        `json:"center_lng"`
	DistanceMiles            float64        `json:"distance_miles"`
	Timezone                 string         `json:"timezone"`
	Cities                   []EnrichedCity `json:"cities"`
}

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Criteria is the user-editable filter applied to a cached county list.
type Criteria struct {
	RadiusMiles     float64  `json:"radius_miles"`
	Population      Range    `json:"population"`
	MedianAge       Range    `json:"median_age"`
	HouseholdIncome Range    `json:"household_income"`
	HomeValue       Range    `json:"home_value"`
	HomeOwnership   Range    `json:"home_ownership"`
	States          []string `json:"states"`
}

// DefaultCriteria returns ranges wide enough to pass every county.
func DefaultCriteria(radiusMiles float64) Criteria {
	return Criteria{
		RadiusMiles:     radiusMiles,
		Population:      Range{Min: 0, Max: 50_000_000},
		MedianAge:       Range{Min: 0, Max: 120},
		HouseholdIncome: Range{Min: 0, Max: 1_000_000},
		HomeValue:       Range{Min: 0, Max: 10_000_000},
		HomeOwnership:   Range{Min: 0, Max: 100},
		States:          []string{},
	}
}

// Validate checks the ranges and normalizes the state list in place.
func (c *Criteria) Validate() error {
	if math.IsNaN(c.RadiusMiles) || math.IsInf(c.RadiusMiles, 0) || c.RadiusMiles <= 0 {
		return invalidInput("radius must be a positive number of miles, got %v", c.RadiusMiles)
	}
	ranges := []struct {
		name string
		r    Range
	}{
		{"population", c.Population},
		{"median_age", c.MedianAge},
		{"household_income", c.HouseholdIncome},
		{"home_value", c.HomeValue},
		{"home_ownership", c.HomeOwnership},
	}
	for _, r := range ranges {
		if math.IsNaN(r.r.Min) || math.IsNaN(r.r.Max) {
			return invalidInput("%s range must be numeric", r.name)
		}
		if r.r.Min > r.r.Max {
			return invalidInput("%s range min %v exceeds max %v", r.name, r.r.Min, r.r.Max)
		}
	}

	states := make([]string, 0, len(c.States))
	seen := make(map[string]bool, len(c.States))
	for _, s := range c.States {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		states = append(states, s)
	}
	c.States = states
	return nil
}

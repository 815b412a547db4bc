package location

import (
	"slices"
	"strings"
)

// FilterCounties returns the counties that satisfy c, preserving order. An
// average of 0 means the data is missing and skips its range check; total
// population is always checked. counties is never modified.
func FilterCounties(counties []CountyAggregate, c Criteria) []CountyAggregate {
	out := make([]CountyAggregate, 0, len(counties))
	for _, county := range counties {
		if matches(county, c) {
			out = append(out, county)
		}
	}
	return out
}

func matches(county CountyAggregate, c Criteria) bool {
	if !c.Population.Contains(county.TotalPopulation) {
		return false
	}
	if !zeroOrWithin(county.AvgAgeMedian, c.MedianAge) ||
		!zeroOrWithin(county.AvgIncomeHouseholdMedian, c.HouseholdIncome) ||
		!zeroOrWithin(county.AvgHomeValue, c.HomeValue) ||
		!zeroOrWithin(county.AvgHomeOwnership, c.HomeOwnership) {
		return false
	}
	if len(c.States) == 0 {
		return true
	}
	return slices.ContainsFunc(c.States, func(s string) bool {
		return strings.EqualFold(strings.TrimSpace(s), county.StateID)
	})
}

func zeroOrWithin(v float64, r Range) bool {
	return v == 0 || r.Contains(v)
}

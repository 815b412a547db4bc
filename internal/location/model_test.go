package location

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange_Contains(t *testing.T) {
	r := Range{Min: 10, Max: 20}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(20))
	assert.True(t, r.Contains(15))
	assert.False(t, r.Contains(9.99))
	assert.False(t, r.Contains(20.01))
}

func TestDefaultCriteria_PassesTypicalCounty(t *testing.T) {
	c := DefaultCriteria(50)
	require.NoError(t, c.Validate())
	assert.Equal(t, 50.0, c.RadiusMiles)
	assert.NotNil(t, c.States)

	county := CountyAggregate{
		TotalPopulation: 1_000_000, AvgAgeMedian: 38, AvgIncomeHouseholdMedian: 72000,
		AvgHomeValue: 350000, AvgHomeOwnership: 63.5, StateID: "GA",
	}
	assert.True(t, matches(county, c))
}

func TestCriteria_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Criteria)
		wantErr string
	}{
		{"defaults", func(*Criteria) {}, ""},
		{"zero radius", func(c *Criteria) { c.RadiusMiles = 0 }, "radius"},
		{"negative radius", func(c *Criteria) { c.RadiusMiles = -5 }, "radius"},
		{"nan radius", func(c *Criteria) { c.RadiusMiles = math.NaN() }, "radius"},
		{"infinite radius", func(c *Criteria) { c.RadiusMiles = math.Inf(1) }, "radius"},
		{"population inverted", func(c *Criteria) { c.Population = Range{Min: 10, Max: 5} }, "population"},
		{"age inverted", func(c *Criteria) { c.MedianAge = Range{Min: 60, Max: 20} }, "median_age"},
		{"ownership nan", func(c *Criteria) { c.HomeOwnership.Max = math.NaN() }, "home_ownership"},
		{"equal bounds", func(c *Criteria) { c.HomeValue = Range{Min: 100, Max: 100} }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultCriteria(25)
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCriteria_ValidateNormalizesStates(t *testing.T) {
	c := DefaultCriteria(10)
	c.States = []string{" ga", "GA", "", "tn "}
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"GA", "TN"}, c.States)
}

func TestTimezoneForState(t *testing.T) {
	assert.Equal(t, "Eastern", TimezoneForState("GA"))
	assert.Equal(t, "Central", TimezoneForState("tx"))
	assert.Equal(t, "Pacific", TimezoneForState(" CA "))
	assert.Equal(t, "Alaska", TimezoneForState("AK"))
	assert.Equal(t, "Hawaii", TimezoneForState("HI"))
	assert.Equal(t, UnknownTimezone, TimezoneForState("DC"))
	assert.Equal(t, UnknownTimezone, TimezoneForState(""))
	assert.Len(t, stateTimezones, 50)
}

func TestErrors_Is(t *testing.T) {
	assert.ErrorIs(t, invalidInput("bad %d", 1), ErrInvalidInput)
	assert.ErrorIs(t, &NotFoundError{PostalCode: "00000"}, ErrNotFound)

	cause := assert.AnError
	sf := &SearchFailedError{Op: "fetch candidates", Err: cause}
	assert.ErrorIs(t, sf, ErrSearchFailed)
	assert.ErrorIs(t, sf, cause)
	assert.NotErrorIs(t, sf, ErrNotFound)
	assert.Contains(t, sf.Error(), "fetch candidates")
	assert.Equal(t, "postal code 00000 not found", (&NotFoundError{PostalCode: "00000"}).Error())
}

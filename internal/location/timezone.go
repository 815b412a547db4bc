package location

import "strings"

// UnknownTimezone is reported for state ids missing from the table.
const UnknownTimezone = "Unknown"

// stateTimezones maps each state to its predominant time zone. States split
// across zones use the zone covering most of their population.
var stateTimezones = map[string]string{
	"AL": "Central", "AK": "Alaska", "AZ": "Mountain", "AR": "Central", "CA": "Pacific",
	"CO": "Mountain", "CT": "Eastern", "DE": "Eastern", "FL": "Eastern", "GA": "Eastern",
	"HI": "Hawaii", "ID": "Mountain", "IL": "Central", "IN": "Eastern", "IA": "Central",
	"KS": "Central", "KY": "Eastern", "LA": "Central", "ME": "Eastern", "MD": "Eastern",
	"MA": "Eastern", "MI": "Eastern", "MN": "Central", "MS": "Central", "MO": "Central",
	"MT": "Mountain", "NE": "Central", "NV": "Pacific", "NH": "Eastern", "NJ": "Eastern",
	"NM": "Mountain", "NY": "Eastern", "NC": "Eastern", "ND": "Central", "OH": "Eastern",
	"OK": "Central", "OR": "Pacific", "PA": "Eastern", "RI": "Eastern", "SC": "Eastern",
	"SD": "Central", "TN": "Central", "TX": "Central", "UT": "Mountain", "VT": "Eastern",
	"VA": "Eastern", "WA": "Pacific", "WV": "Eastern", "WI": "Central", "WY": "Mountain",
}

// TimezoneForState returns the time zone name for a two-letter state id.
func TimezoneForState(stateID string) string {
	if tz, ok := stateTimezones[strings.ToUpper(strings.TrimSpace(stateID))]; ok {
		return tz
	}
	return UnknownTimezone
}

package location

import (
	"context"
	"regexp"
	"strings"
)

var postalCodePattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ValidatePostalCode trims input and returns its 5-digit prefix. ZIP+4 input is
// accepted and truncated.
func ValidatePostalCode(input string) (string, error) {
	zip := strings.TrimSpace(input)
	if !postalCodePattern.MatchString(zip) {
		return "", invalidInput("postal code %q must be 5 digits or ZIP+4", input)
	}
	return zip[:5], nil
}

// ResolveCenter validates input and looks up its coordinates. A malformed code
// never reaches the store.
func ResolveCenter(ctx context.Context, store Store, input string) (*Center, error) {
	zip, err := ValidatePostalCode(input)
	if err != nil {
		return nil, err
	}
	m, err := store.LookupPostalCode(ctx, zip)
	if err != nil {
		return nil, &SearchFailedError{Op: "resolve postal code", Err: err}
	}
	if m == nil {
		return nil, &NotFoundError{PostalCode: zip}
	}
	return &Center{
		PostalCode: zip,
		City:       m.City,
		StateName:  m.StateName,
		Coord:      &Coord{Lat: m.Latitude, Lng: m.Longitude},
	}, nil
}

// FetchCandidates returns the bounding-box superset of rows around center.
func FetchCandidates(ctx context.Context, store Store, center Coord, radiusMiles float64) ([]Record, error) {
	records, err := store.ListInBounds(ctx, BoundsAround(center, radiusMiles))
	if err != nil {
		return nil, &SearchFailedError{Op: "fetch candidates", Err: err}
	}
	return records, nil
}

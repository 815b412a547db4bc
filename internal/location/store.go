package location

import (
	"context"
	"database/sql"

	"github.com/twpayne/go-geom"
)

// PostalCodeMatch is the first dataset row carrying coordinates for a postal code.
type PostalCodeMatch struct {
	City       string
	StateName  string
	PostalCode string
	Latitude   float64
	Longitude  float64
}

// Store is the read side of the location dataset used by the search pipeline.
type Store interface {
	// LookupPostalCode returns the first row for postalCode with non-null
	// coordinates, or nil when the dataset has none.
	LookupPostalCode(ctx context.Context, postalCode string) (*PostalCodeMatch, error)

	// ListInBounds returns every row inside b (X longitude, Y latitude) with
	// a positive population.
	ListInBounds(ctx context.Context, b *geom.Bounds) ([]Record, error)
}

// Writer loads rows into the location dataset.
type Writer interface {
	WriteLocations(ctx context.Context, records []Record) (int64, error)
}

// Stats summarizes the loaded dataset.
type Stats struct {
	Rows          int64 `json:"rows" yaml:"rows"`
	PostalCodes   int64 `json:"postal_codes" yaml:"postal_codes"`
	Counties      int64 `json:"counties" yaml:"counties"`
	States        int64 `json:"states" yaml:"states"`
	MissingCoords int64 `json:"missing_coords" yaml:"missing_coords"`
}

// StatsReader reports dataset statistics.
type StatsReader interface {
	Stats(ctx context.Context) (*Stats, error)
}

// recordColumns is the column order shared by every query, COPY and insert.
var recordColumns = []string{
	"city", "state_name", "state_id", "county_name", "postal_code",
	"latitude", "longitude",
	"population", "age_median", "income_household_median", "housing_units",
	"home_value", "home_ownership", "veteran",
}

const selectRecordColumns = `city, state_name, state_id, county_name, postal_code,
		       latitude, longitude,
		       population, age_median, income_household_median, housing_units,
		       home_value, home_ownership, veteran`

// rowScanner is satisfied by pgx.Rows and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// recordScan holds the nullable text columns while a row is scanned.
type recordScan struct {
	city, stateName, stateID, countyName, postalCode sql.NullString
	rec                                              Record
}

func (s *recordScan) dest() []any {
	return []any{
		&s.city, &s.stateName, &s.stateID, &s.countyName, &s.postalCode,
		&s.rec.Latitude, &s.rec.Longitude,
		&s.rec.Population, &s.rec.AgeMedian, &s.rec.IncomeHouseholdMedian, &s.rec.HousingUnits,
		&s.rec.HomeValue, &s.rec.HomeOwnership, &s.rec.Veteran,
	}
}

func (s *recordScan) record() Record {
	r := s.rec
	r.City = s.city.String
	r.StateName = s.stateName.String
	r.StateID = s.stateID.String
	r.CountyName = s.countyName.String
	r.PostalCode = s.postalCode.String
	return r
}

func scanRecord(row rowScanner) (Record, error) {
	var s recordScan
	if err := row.Scan(s.dest()...); err != nil {
		return Record{}, err
	}
	return s.record(), nil
}

// recordValues flattens r in recordColumns order.
func recordValues(r Record) []any {
	return []any{
		nullIfEmpty(r.City), nullIfEmpty(r.StateName), nullIfEmpty(r.StateID),
		nullIfEmpty(r.CountyName), r.PostalCode,
		r.Latitude, r.Longitude,
		r.Population, r.AgeMedian, r.IncomeHouseholdMedian, r.HousingUnits,
		r.HomeValue, r.HomeOwnership, r.Veteran,
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

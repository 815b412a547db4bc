// Package export renders county search results as tables, JSON, YAML, XLSX
// workbooks and GeoJSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/location-builder/internal/location"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatXLSX    Format = "xlsx"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML, FormatXLSX, FormatGeoJSON:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// ContentType returns the HTTP media type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatGeoJSON:
		return "application/geo+json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// CountyRow is the flat, per-county view used by every tabular format.
type CountyRow struct {
	County          string  `json:"county_name" yaml:"county_name"`
	StateID         string  `json:"state_id" yaml:"state_id"`
	StateName       string  `json:"state_name" yaml:"state_name"`
	Timezone        string  `json:"timezone" yaml:"timezone"`
	DistanceMiles   float64 `json:"distance_miles" yaml:"distance_miles"`
	Cities          int     `json:"city_count" yaml:"city_count"`
	Population      float64 `json:"total_population" yaml:"total_population"`
	HousingUnits    float64 `json:"total_housing_units" yaml:"total_housing_units"`
	Veterans        float64 `json:"total_veterans" yaml:"total_veterans"`
	MedianAge       float64 `json:"avg_age_median" yaml:"avg_age_median"`
	HouseholdIncome float64 `json:"avg_income_household_median" yaml:"avg_income_household_median"`
	HomeValue       float64 `json:"avg_home_value" yaml:"avg_home_value"`
	HomeOwnership   float64 `json:"avg_home_ownership" yaml:"avg_home_ownership"`
	CenterLat       float64 `json:"center_lat" yaml:"center_lat"`
	CenterLng       float64 `json:"center_lng" yaml:"center_lng"`
}

// Rows flattens counties, rounding distances to a tenth of a mile.
func Rows(counties []location.CountyAggregate) []CountyRow {
	rows := make([]CountyRow, 0, len(counties))
	for _, c := range counties {
		rows = append(rows, CountyRow{
			County:          c.CountyName,
			StateID:         c.StateID,
			StateName:       c.StateName,
			Timezone:        c.Timezone,
			DistanceMiles:   roundTenth(c.DistanceMiles),
			Cities:          c.CityCount,
			Population:      c.TotalPopulation,
			HousingUnits:    c.TotalHousingUnits,
			Veterans:        c.TotalVeterans,
			MedianAge:       c.AvgAgeMedian,
			HouseholdIncome: c.AvgIncomeHouseholdMedian,
			HomeValue:       c.AvgHomeValue,
			HomeOwnership:   c.AvgHomeOwnership,
			CenterLat:       c.CenterLat,
			CenterLng:       c.CenterLng,
		})
	}
	return rows
}

// Report is the document written by the JSON and YAML encoders.
type Report struct {
	PostalCode  string          `json:"postal_code" yaml:"postal_code"`
	RadiusMiles float64         `json:"radius_miles" yaml:"radius_miles"`
	Center      *location.Coord `json:"center" yaml:"center"`
	CenterCity  string          `json:"center_city,omitempty" yaml:"center_city,omitempty"`
	CountyCount int             `json:"county_count" yaml:"county_count"`
	Counties    []CountyRow     `json:"counties" yaml:"counties"`
}

// NewReport builds a Report for counties found around res.
func NewReport(res *location.SearchResult, counties []location.CountyAggregate) Report {
	r := Report{Counties: Rows(counties), CountyCount: len(counties)}
	if res != nil {
		r.PostalCode = res.PostalCode
		r.RadiusMiles = res.RadiusMiles
		r.Center = res.Center
		r.CenterCity = res.CenterCity
	}
	return r
}

// Write encodes counties in format f.
func Write(w io.Writer, f Format, res *location.SearchResult, counties []location.CountyAggregate) error {
	switch f {
	case FormatTable, "":
		return WriteTable(w, counties)
	case FormatJSON:
		return WriteJSON(w, NewReport(res, counties))
	case FormatYAML:
		return WriteYAML(w, NewReport(res, counties))
	case FormatXLSX:
		return WriteXLSX(w, counties)
	case FormatGeoJSON:
		var center *location.Coord
		if res != nil {
			center = res.Center
		}
		return WriteGeoJSON(w, counties, center)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

// WriteYAML writes v as YAML with two-space indentation.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "export: close yaml encoder")
	}
	return nil
}

func roundTenth(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

func sheetTitle(c location.CountyAggregate) string {
	return fmt.Sprintf("%s, %s", c.CountyName, c.StateID)
}

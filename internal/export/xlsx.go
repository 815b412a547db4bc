package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/location-builder/internal/location"
)

// Sheet names in exported workbooks.
const (
	CountiesSheet = "Counties"
	CitiesSheet   = "Cities"
)

var countyHeader = []string{
	"County", "State", "State Name", "Timezone", "Distance (mi)", "Cities",
	"Population", "Housing Units", "Veterans", "Median Age", "Household Income",
	"Home Value", "Home Ownership %", "Center Lat", "Center Lng",
}

var cityHeader = []string{
	"County", "State", "City", "Postal Code", "Distance (mi)", "Population",
	"Median Age", "Household Income", "Housing Units", "Home Value", "Home Ownership %",
	"Latitude", "Longitude",
}

// BuildWorkbook creates a workbook with one row per county and one row per
// member city.
func BuildWorkbook(counties []location.CountyAggregate) (*xlsx.File, error) {
	f := xlsx.NewFile()

	cs, err := f.AddSheet(CountiesSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add counties sheet")
	}
	addHeader(cs, countyHeader)
	for _, r := range Rows(counties) {
		row := cs.AddRow()
		row.AddCell().SetString(r.County)
		row.AddCell().SetString(r.StateID)
		row.AddCell().SetString(r.StateName)
		row.AddCell().SetString(r.Timezone)
		row.AddCell().SetFloat(r.DistanceMiles)
		row.AddCell().SetInt(r.Cities)
		row.AddCell().SetFloat(r.Population)
		row.AddCell().SetFloat(r.HousingUnits)
		row.AddCell().SetFloat(r.Veterans)
		row.AddCell().SetFloat(r.MedianAge)
		row.AddCell().SetFloat(r.HouseholdIncome)
		row.AddCell().SetFloat(r.HomeValue)
		row.AddCell().SetFloat(r.HomeOwnership)
		row.AddCell().SetFloat(r.CenterLat)
		row.AddCell().SetFloat(r.CenterLng)
	}

	ct, err := f.AddSheet(CitiesSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add cities sheet")
	}
	addHeader(ct, cityHeader)
	for _, c := range counties {
		for _, city := range c.Cities {
			row := ct.AddRow()
			row.AddCell().SetString(c.CountyName)
			row.AddCell().SetString(c.StateID)
			row.AddCell().SetString(city.City)
			row.AddCell().SetString(city.PostalCode)
			row.AddCell().SetFloat(roundTenth(city.DistanceMiles))
			row.AddCell().SetFloat(city.Population)
			row.AddCell().SetFloat(city.AgeMedian)
			row.AddCell().SetFloat(city.IncomeHouseholdMedian)
			row.AddCell().SetFloat(city.HousingUnits)
			row.AddCell().SetFloat(city.HomeValue)
			row.AddCell().SetFloat(city.HomeOwnership)
			row.AddCell().SetFloat(city.Latitude)
			row.AddCell().SetFloat(city.Longitude)
		}
	}
	return f, nil
}

// WriteXLSX writes the workbook for counties to w.
func WriteXLSX(w io.Writer, counties []location.CountyAggregate) error {
	f, err := BuildWorkbook(counties)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, cols []string) {
	row := sheet.AddRow()
	for _, h := range cols {
		row.AddCell().SetString(h)
	}
}

package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/location-builder/internal/location"
)

// FeatureCollection returns county centroids as point features. When center
// is set it is added as the first feature with kind "center".
func FeatureCollection(counties []location.CountyAggregate, center *location.Coord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(counties)+1)}
	if center != nil {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         "center",
			Geometry:   geom.NewPointFlat(geom.XY, []float64{center.Lng, center.Lat}),
			Properties: map[string]any{"kind": "center"},
		})
	}
	for _, c := range counties {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       sheetTitle(c),
			Geometry: geom.NewPointFlat(geom.XY, []float64{c.CenterLng, c.CenterLat}),
			Properties: map[string]any{
				"kind":                        "county",
				"county_name":                 c.CountyName,
				"state_id":                    c.StateID,
				"timezone":                    c.Timezone,
				"distance_miles":              roundTenth(c.DistanceMiles),
				"city_count":                  c.CityCount,
				"total_population":            c.TotalPopulation,
				"avg_age_median":              c.AvgAgeMedian,
				"avg_income_household_median": c.AvgIncomeHouseholdMedian,
				"avg_home_value":              c.AvgHomeValue,
				"avg_home_ownership":          c.AvgHomeOwnership,
			},
		})
	}
	return fc
}

// WriteGeoJSON writes the county FeatureCollection to w.
func WriteGeoJSON(w io.Writer, counties []location.CountyAggregate, center *location.Coord) error {
	data, err := json.Marshal(FeatureCollection(counties, center))
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}

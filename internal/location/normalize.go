package location

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Normalize coerces a raw demographic value into a finite non-negative float.
// NULL, blank strings, unparseable text, NaN, infinities and negative census
// sentinels (e.g. -666666666) all become 0.
func Normalize(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return finite(float64(x))
	case int8:
		return finite(float64(x))
	case int16:
		return finite(float64(x))
	case int32:
		return finite(float64(x))
	case int64:
		return finite(float64(x))
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case string:
		return parseNumber(x)
	case []byte:
		return parseNumber(string(x))
	case json.Number:
		return parseNumber(x.String())
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return 0
		}
		return finite(f.Float64)
	case pgtype.Float8:
		if !x.Valid {
			return 0
		}
		return finite(x.Float64)
	case pgtype.Int8:
		if !x.Valid {
			return 0
		}
		return finite(float64(x.Int64))
	case pgtype.Text:
		if !x.Valid {
			return 0
		}
		return parseNumber(x.String)
	case *float64:
		if x == nil {
			return 0
		}
		return finite(*x)
	case *string:
		if x == nil {
			return 0
		}
		return parseNumber(*x)
	default:
		return 0
	}
}

// parseNumber reads the leading numeric prefix of s, tolerating thousands separators.
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return finite(f)
	}
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// normalizeDemographics converts the raw columns of r.
func normalizeDemographics(r Record) Demographics {
	return Demographics{
		Population:            Normalize(r.Population),
		AgeMedian:             Normalize(r.AgeMedian),
		IncomeHouseholdMedian: Normalize(r.IncomeHouseholdMedian),
		HousingUnits:          Normalize(r.HousingUnits),
		HomeValue:             Normalize(r.HomeValue),
		HomeOwnership:         Normalize(r.HomeOwnership),
		Veteran:               Normalize(r.Veteran),
	}
}

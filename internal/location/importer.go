package location

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultImportBatchSize is the number of rows written per batch.
const DefaultImportBatchSize = 1000

// csvLocation mirrors the dataset export headers. Every column is read as text
// so blank cells can be told apart from zeros.
type csvLocation struct {
	City                  string `csv:"city"`
	StateName             string `csv:"state_name"`
	StateID               string `csv:"state_id"`
	CountyName            string `csv:"county_name"`
	PostalCode            string `csv:"postal_code"`
	Latitude              string `csv:"latitude"`
	Longitude             string `csv:"longitude"`
	Population            string `csv:"population"`
	AgeMedian             string `csv:"age_median"`
	IncomeHouseholdMedian string `csv:"income_household_median"`
	HousingUnits          string `csv:"housing_units"`
	HomeValue             string `csv:"home_value"`
	HomeOwnership         string `csv:"home_ownership"`
	Veteran               string `csv:"veteran"`
}

// ImportResult counts the rows seen by Import.
type ImportResult struct {
	Read           int64 `json:"read"`
	Written        int64 `json:"written"`
	SkippedNoZip   int64 `json:"skipped_no_zip"`
	SkippedNoCoord int64 `json:"skipped_no_coord"`
}

// Import decodes a location CSV from r and writes it through w in batches.
// Decoding and writing run concurrently; the first error stops both.
func Import(ctx context.Context, w Writer, r io.Reader, batchSize int) (*ImportResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultImportBatchSize
	}
	log := zap.L().With(zap.String("component", "location.import"))

	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ImportResult{}, nil
		}
		return nil, eris.Wrap(err, "location: read csv header")
	}
	if !hasColumn(dec.Header(), "postal_code") {
		return nil, eris.New("location: csv header has no postal_code column")
	}

	res := &ImportResult{}
	batches := make(chan []Record, 2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		batch := make([]Record, 0, batchSize)
		for {
			var row csvLocation
			if err := dec.Decode(&row); err == io.EOF {
				break
			} else if err != nil {
				return eris.Wrapf(err, "location: decode csv line %d", res.Read+2)
			}
			res.Read++

			rec, ok := recordFromCSV(row)
			switch {
			case rec.PostalCode == "":
				res.SkippedNoZip++
				continue
			case !ok:
				res.SkippedNoCoord++
				continue
			}

			batch = append(batch, rec)
			if len(batch) == batchSize {
				select {
				case batches <- batch:
				case <-gctx.Done():
					return gctx.Err()
				}
				batch = make([]Record, 0, batchSize)
			}
		}
		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var written int64
	g.Go(func() error {
		for batch := range batches {
			n, err := w.WriteLocations(gctx, batch)
			written += n
			if err != nil {
				return eris.Wrap(err, "location: write batch")
			}
			log.Debug("batch written", zap.Int64("rows", n), zap.Int64("total", written))
		}
		return nil
	})

	err = g.Wait()
	res.Written = written
	if err != nil {
		return res, err
	}

	log.Info("import complete",
		zap.Int64("read", res.Read),
		zap.Int64("written", res.Written),
		zap.Int64("skipped_no_zip", res.SkippedNoZip),
		zap.Int64("skipped_no_coord", res.SkippedNoCoord),
	)
	return res, nil
}

// recordFromCSV converts a decoded row. ok is false when either coordinate is
// missing or unparseable.
func recordFromCSV(row csvLocation) (Record, bool) {
	rec := Record{
		City:                  strings.TrimSpace(row.City),
		StateName:             strings.TrimSpace(row.StateName),
		StateID:               strings.ToUpper(strings.TrimSpace(row.StateID)),
		CountyName:            strings.TrimSpace(row.CountyName),
		PostalCode:            padPostalCode(row.PostalCode),
		Population:            csvNumber(row.Population),
		AgeMedian:             csvNumber(row.AgeMedian),
		IncomeHouseholdMedian: csvNumber(row.IncomeHouseholdMedian),
		HousingUnits:          csvNumber(row.HousingUnits),
		HomeValue:             csvNumber(row.HomeValue),
		HomeOwnership:         csvNumber(row.HomeOwnership),
		Veteran:               csvNumber(row.Veteran),
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(row.Latitude), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(row.Longitude), 64)
	if latErr != nil || lngErr != nil {
		return rec, false
	}
	rec.Latitude = lat
	rec.Longitude = lng
	return rec, true
}

// csvNumber returns the numeric value of a cell, or nil (NULL) when the cell
// is blank or not a number.
func csvNumber(s string) any {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// padPostalCode restores leading zeros that spreadsheet tools strip from ZIPs.
func padPostalCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || len(s) >= 5 {
		return s
	}
	if _, err := strconv.Atoi(s); err != nil {
		return s
	}
	return strings.Repeat("0", 5-len(s)) + s
}

func hasColumn(header []string, name string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) == name {
			return true
		}
	}
	return false
}

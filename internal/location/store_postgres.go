package location

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/location-builder/internal/db"
)

// DefaultTable is the dataset table queried by both stores.
const DefaultTable = "location_data"

// PostgresStore implements Store, Writer and StatsReader on a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// LookupPostalCode implements Store.
func (s *PostgresStore) LookupPostalCode(ctx context.Context, postalCode string) (*PostalCodeMatch, error) {
	q := `
		SELECT city, state_name, latitude, longitude, postal_code
		FROM location_data
		WHERE postal_code = $1 AND latitude IS NOT NULL AND longitude IS NOT NULL
		LIMIT 1
	`
	var (
		city, stateName, zip sql.NullString
		m                    PostalCodeMatch
	)
	err := s.pool.QueryRow(ctx, q, postalCode).Scan(&city, &stateName, &m.Latitude, &m.Longitude, &zip)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "location: lookup postal code")
	}
	m.City = city.String
	m.StateName = stateName.String
	m.PostalCode = zip.String
	return &m, nil
}

// ListInBounds implements Store.
func (s *PostgresStore) ListInBounds(ctx context.Context, b *geom.Bounds) ([]Record, error) {
	q := `
		SELECT ` + selectRecordColumns + `
		FROM location_data
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		  AND population > 0
	`
	rows, err := s.pool.Query(ctx, q, b.Min(1), b.Max(1), b.Min(0), b.Max(0))
	if err != nil {
		return nil, eris.Wrap(err, "location: list in bounds")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "location: scan location row")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "location: iterate location rows")
	}
	return records, nil
}

// WriteLocations implements Writer using COPY.
func (s *PostgresStore) WriteLocations(ctx context.Context, records []Record) (int64, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = recordValues(r)
	}
	return db.CopyFrom(ctx, s.pool, DefaultTable, recordColumns, rows)
}

// Stats implements StatsReader.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, statsSQL).Scan(
		&st.Rows, &st.PostalCodes, &st.Counties, &st.States, &st.MissingCoords,
	)
	if err != nil {
		return nil, eris.Wrap(err, "location: stats")
	}
	return &st, nil
}

const statsSQL = `
	SELECT COUNT(*),
	       COUNT(DISTINCT postal_code),
	       COUNT(DISTINCT state_id || '/' || county_name),
	       COUNT(DISTINCT state_id),
	       COUNT(CASE WHEN latitude IS NULL OR longitude IS NULL THEN 1 END)
	FROM location_data
`

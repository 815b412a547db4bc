package location

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	// Register the pure-Go sqlite driver.
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store, Writer and StatsReader on an embedded SQLite
// database. It serves local runs and tests without a Postgres server.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and ensures the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "location: open sqlite")
	}
	// A single connection keeps :memory: databases alive and serializes writers.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{db: conn}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the dataset table and its indexes if missing.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS location_data (
			id                      INTEGER PRIMARY KEY AUTOINCREMENT,
			city                    TEXT,
			state_name              TEXT,
			state_id                TEXT,
			county_name             TEXT,
			postal_code             TEXT NOT NULL,
			latitude                REAL,
			longitude               REAL,
			population              NUMERIC,
			age_median              NUMERIC,
			income_household_median NUMERIC,
			housing_units           NUMERIC,
			home_value              NUMERIC,
			home_ownership          NUMERIC,
			veteran                 NUMERIC
		);
		CREATE INDEX IF NOT EXISTS idx_location_data_postal_code ON location_data (postal_code);
		CREATE INDEX IF NOT EXISTS idx_location_data_lat_lng ON location_data (latitude, longitude);
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return eris.Wrap(err, "location: ensure sqlite schema")
	}
	return nil
}

// LookupPostalCode implements Store.
func (s *SQLiteStore) LookupPostalCode(ctx context.Context, postalCode string) (*PostalCodeMatch, error) {
	q := `
		SELECT city, state_name, latitude, longitude, postal_code
		FROM location_data
		WHERE postal_code = ? AND latitude IS NOT NULL AND longitude IS NOT NULL
		LIMIT 1
	`
	var (
		city, stateName, zip sql.NullString
		m                    PostalCodeMatch
	)
	err := s.db.QueryRowContext(ctx, q, postalCode).Scan(&city, &stateName, &m.Latitude, &m.Longitude, &zip)
	if errors.Is(err, sql.ErrNoRows) {
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
func (s *SQLiteStore) ListInBounds(ctx context.Context, b *geom.Bounds) ([]Record, error) {
	q := `
		SELECT ` + selectRecordColumns + `
		FROM location_data
		WHERE latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?
		  AND population > 0
	`
	rows, err := s.db.QueryContext(ctx, q, b.Min(1), b.Max(1), b.Min(0), b.Max(0))
	if err != nil {
		return nil, eris.Wrap(err, "location: list in bounds")
	}
	defer rows.Close() //nolint:errcheck

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

// WriteLocations implements Writer inside a single transaction.
func (s *SQLiteStore) WriteLocations(ctx context.Context, records []Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "location: begin sqlite tx")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(recordColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO location_data ("+strings.Join(recordColumns, ", ")+") VALUES ("+placeholders+")")
	if err != nil {
		return 0, eris.Wrap(err, "location: prepare sqlite insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, recordValues(r)...); err != nil {
			return n, eris.Wrapf(err, "location: insert postal code %s", r.PostalCode)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "location: commit sqlite tx")
	}
	return n, nil
}

// Stats implements StatsReader.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, statsSQL).Scan(
		&st.Rows, &st.PostalCodes, &st.Counties, &st.States, &st.MissingCoords,
	)
	if err != nil {
		return nil, eris.Wrap(err, "location: stats")
	}
	return &st, nil
}

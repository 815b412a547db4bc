package location

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/location-builder/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies pending Postgres migrations in lexicographic order and
// returns the filenames it applied.
func Migrate(ctx context.Context, pool db.Pool) ([]string, error) {
	log := zap.L().With(zap.String("component", "location.migrate"))

	// Advisory lock prevents concurrent migration runs.
	if _, err := pool.Exec(ctx, "SELECT pg_advisory_lock(8675311)"); err != nil {
		return nil, eris.Wrap(err, "location: acquire migration advisory lock")
	}
	defer func() {
		if _, err := pool.Exec(ctx, "SELECT pg_advisory_unlock(8675311)"); err != nil {
			log.Warn("location: failed to release migration advisory lock", zap.Error(err))
		}
	}()

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS location_schema_migrations (
			id         SERIAL PRIMARY KEY,
			filename   TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return nil, eris.Wrap(err, "location: ensure migration table")
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, eris.Wrap(err, "location: read migration dir")
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, entry := range entries {
		name := entry.Name()
		if applied[name] {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return ran, eris.Wrapf(err, "location: read migration %s", name)
		}

		log.Info("applying migration", zap.String("file", name))
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return ran, eris.Wrapf(err, "location: apply migration %s", name)
		}
		if _, err := pool.Exec(ctx,
			"INSERT INTO location_schema_migrations (filename, applied_at) VALUES ($1, now())",
			name,
		); err != nil {
			return ran, eris.Wrapf(err, "location: record migration %s", name)
		}
		ran = append(ran, name)
	}
	return ran, nil
}

// MigrationFiles lists the embedded migration filenames in apply order.
func MigrationFiles() []string {
	entries, _ := fs.ReadDir(migrationFS, "migrations")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func appliedMigrations(ctx context.Context, pool db.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT filename FROM location_schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "location: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "location: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/location-builder/internal/config"
	"github.com/sells-group/location-builder/internal/db"
	"github.com/sells-group/location-builder/internal/location"
	"github.com/sells-group/location-builder/internal/resilience"
)

// dataset bundles the configured location backend. Store is the breaker
// guarded read side; Writer and Stats talk to the backend directly.
type dataset struct {
	Store  location.Store
	Writer location.Writer
	Stats  location.StatsReader
	// Pool is set for the postgres driver only.
	Pool db.Pool

	closeFn func()
}

// Close releases the underlying connections.
func (d *dataset) Close() {
	if d.closeFn != nil {
		d.closeFn()
	}
}

func openDataset(ctx context.Context) (*dataset, error) {
	var ds *dataset

	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "locations.db"
		}
		s, err := location.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		ds = &dataset{Store: s, Writer: s, Stats: s, closeFn: func() { _ = s.Close() }}
	case "postgres":
		pool, err := openPool(ctx)
		if err != nil {
			return nil, err
		}
		s := location.NewPostgresStore(pool)
		ds = &dataset{Store: s, Writer: s, Stats: s, Pool: pool, closeFn: pool.Close}
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	ds.Store = location.NewGuardedStore(ds.Store, resilience.NewBreakerConfig(
		cfg.Breaker.FailureThreshold,
		cfg.Breaker.ResetTimeoutSecs,
	))

	zap.L().Debug("location store opened", zap.String("driver", cfg.Store.Driver))
	return ds, nil
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Open(ctx, cfg.Store.DatabaseURL, db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open location database")
	}
	return pool, nil
}

func serviceOptions(sc config.SearchConfig) location.Options {
	return location.Options{
		DefaultRadiusMiles: sc.DefaultRadiusMiles,
		MaxRadiusMiles:     sc.MaxRadiusMiles,
		DebounceInterval:   time.Duration(sc.DebounceMs) * time.Millisecond,
		SearchTimeout:      time.Duration(sc.TimeoutSecs) * time.Second,
		SessionTTL:         time.Duration(sc.SessionTTLMinutes) * time.Minute,
	}
}

package location

import (
	"context"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/location-builder/internal/resilience"
)

// GuardedStore fails fast while the wrapped store keeps returning transient
// errors. It never retries.
type GuardedStore struct {
	next    Store
	breaker *resilience.Breaker
}

// NewGuardedStore wraps next with a circuit breaker built from cfg.
func NewGuardedStore(next Store, cfg resilience.BreakerConfig) *GuardedStore {
	if cfg.OnStateChange == nil {
		cfg.OnStateChange = func(from, to resilience.State) {
			zap.L().Warn("location: store breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &GuardedStore{next: next, breaker: resilience.NewBreaker(cfg)}
}

// BreakerState reports the breaker position for health output.
func (g *GuardedStore) BreakerState() resilience.State {
	return g.breaker.State()
}

// LookupPostalCode implements Store.
func (g *GuardedStore) LookupPostalCode(ctx context.Context, postalCode string) (*PostalCodeMatch, error) {
	return resilience.Guard(ctx, g.breaker, func(ctx context.Context) (*PostalCodeMatch, error) {
		return g.next.LookupPostalCode(ctx, postalCode)
	})
}

// ListInBounds implements Store.
func (g *GuardedStore) ListInBounds(ctx context.Context, b *geom.Bounds) ([]Record, error) {
	return resilience.Guard(ctx, g.breaker, func(ctx context.Context) ([]Record, error) {
		return g.next.ListInBounds(ctx, b)
	})
}

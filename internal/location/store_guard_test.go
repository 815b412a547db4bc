package location

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/location-builder/internal/resilience"
)

func TestGuardedStore_PassesThrough(t *testing.T) {
	store := atlantaStore()
	g := NewGuardedStore(store, resilience.NewBreakerConfig(2, 30))

	m, err := g.LookupPostalCode(context.Background(), "30309")
	require.NoError(t, err)
	assert.Equal(t, "Atlanta", m.City)

	records, err := g.ListInBounds(context.Background(), BoundsAround(midtownAtlanta, 50))
	require.NoError(t, err)
	assert.NotEmpty(t, records)
	assert.Equal(t, resilience.Closed, g.BreakerState())
}

func TestGuardedStore_OpensOnTransientFailures(t *testing.T) {
	store := atlantaStore()
	store.listErr = errors.New("read tcp: connection reset by peer")
	g := NewGuardedStore(store, resilience.NewBreakerConfig(2, 30))

	b := BoundsAround(midtownAtlanta, 50)
	for i := 0; i < 2; i++ {
		_, err := g.ListInBounds(context.Background(), b)
		require.Error(t, err)
	}
	assert.Equal(t, resilience.Open, g.BreakerState())

	_, err := g.ListInBounds(context.Background(), b)
	assert.ErrorIs(t, err, resilience.ErrOpen)
	_, lists := store.counts()
	assert.Equal(t, 2, lists, "open breaker must not reach the store")
}

func TestGuardedStore_NotFoundDoesNotTrip(t *testing.T) {
	g := NewGuardedStore(atlantaStore(), resilience.NewBreakerConfig(1, 30))
	for i := 0; i < 3; i++ {
		m, err := g.LookupPostalCode(context.Background(), "00000")
		assert.NoError(t, err)
		assert.Nil(t, m)
	}
	assert.Equal(t, resilience.Closed, g.BreakerState())
}

func TestGuardedStore_SurfacesAsSearchFailed(t *testing.T) {
	store := atlantaStore()
	store.lookupErr = errors.New("dial tcp: connection refused")
	g := NewGuardedStore(store, resilience.NewBreakerConfig(1, 30))
	svc := NewService(g, testOptions())

	_, err := svc.Search(context.Background(), "30309", 50)
	assert.ErrorIs(t, err, ErrSearchFailed)

	_, err = svc.Search(context.Background(), "30309", 50)
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.ErrorIs(t, err, resilience.ErrOpen)
}

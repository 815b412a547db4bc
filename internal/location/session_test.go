package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_InitialState(t *testing.T) {
	svc := NewService(atlantaStore(), testOptions())
	sess := svc.NewSession()

	assert.Equal(t, StateIdle, sess.State())
	assert.Equal(t, 50.0, sess.Criteria().RadiusMiles)
	assert.Nil(t, sess.Center())
	assert.Empty(t, sess.Counties())

	_, err := sess.ApplyFilters(DefaultCriteria(50))
	assert.ErrorIs(t, err, ErrNoPriorSearch)
}

func TestSession_SearchReady(t *testing.T) {
	svc := NewService(atlantaStore(), testOptions())
	sess := svc.NewSession()

	res, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)
	assert.Len(t, res.Counties, 3)
	assert.Equal(t, StateReady, sess.State())
	assert.Equal(t, uint64(1), sess.Generation())
	require.NotNil(t, sess.Center())
	assert.Equal(t, "30309", sess.Center().PostalCode)

	snap := sess.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 3, snap.TotalCounties)
	assert.Equal(t, 5, snap.CityCount)
	assert.False(t, snap.Pending)
	assert.Empty(t, snap.Error)
}

func TestSession_NotFoundIsEmpty(t *testing.T) {
	svc := NewService(atlantaStore(), testOptions())
	sess := svc.NewSession()
	_, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)

	res, err := sess.Search(context.Background(), "00000", 50)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NotNil(t, res)
	assert.Nil(t, res.Center)
	assert.Empty(t, res.Counties)

	assert.Equal(t, StateEmpty, sess.State())
	assert.Nil(t, sess.Center())
	assert.Empty(t, sess.AllCounties())
	assert.True(t, sess.HasResults())

	counties, err := sess.ApplyFilters(DefaultCriteria(50))
	require.NoError(t, err, "an earlier successful search still allows filtering")
	assert.Empty(t, counties)
	assert.ErrorIs(t, sess.Err(), ErrNotFound)
}

func TestSession_NotFoundFirstSearchHasNoResults(t *testing.T) {
	svc := NewService(atlantaStore(), testOptions())
	sess := svc.NewSession()

	_, err := sess.Search(context.Background(), "00000", 50)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, StateEmpty, sess.State())
	assert.False(t, sess.HasResults())
	assert.Empty(t, sess.Counties())

	counties, err := sess.ApplyFilters(DefaultCriteria(50))
	assert.Nil(t, counties)
	assert.ErrorIs(t, err, ErrNoPriorSearch)
}

func TestSession_SearchFailedKeepsLastResults(t *testing.T) {
	store := atlantaStore()
	svc := NewService(store, testOptions())
	sess := svc.NewSession()
	_, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)
	before := sess.AllCounties()
	require.Len(t, before, 3)

	store.mu.Lock()
	store.listErr = errors.New("statement timeout")
	store.mu.Unlock()

	_, err = sess.Search(context.Background(), "30309", 50)
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.Equal(t, StateSearchFailed, sess.State())
	assert.True(t, sess.HasResults())
	assert.Equal(t, before, sess.AllCounties())
	assert.NotNil(t, sess.Center())

	c := DefaultCriteria(50)
	c.Population.Min = 100000
	counties, err := sess.ApplyFilters(c)
	require.NoError(t, err)
	require.Len(t, counties, 1)
	assert.Equal(t, "Fulton", counties[0].CountyName)
	assert.Contains(t, sess.Snapshot().Error, "statement timeout")
}

func TestSession_SearchFailedFirstSearchHasNoResults(t *testing.T) {
	store := atlantaStore()
	store.listErr = errors.New("statement timeout")
	svc := NewService(store, testOptions())
	sess := svc.NewSession()

	_, err := sess.Search(context.Background(), "30309", 50)
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.Equal(t, StateSearchFailed, sess.State())
	assert.False(t, sess.HasResults())

	_, err = sess.ApplyFilters(DefaultCriteria(50))
	assert.ErrorIs(t, err, ErrNoPriorSearch)
}

func TestSession_InvalidInputKeepsState(t *testing.T) {
	store := atlantaStore()
	svc := NewService(store, testOptions())
	sess := svc.NewSession()
	_, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)

	_, err = sess.Search(context.Background(), "abc", 50)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, StateReady, sess.State())
	assert.Len(t, sess.Counties(), 3)
	assert.Equal(t, uint64(1), sess.Generation())

	lookups, _ := store.counts()
	assert.Equal(t, 1, lookups)
}

func TestSession_ApplyFilters(t *testing.T) {
	store := atlantaStore()
	svc := NewService(store, testOptions())
	sess := svc.NewSession()
	_, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)

	c := DefaultCriteria(999)
	c.Population.Min = 100_000
	counties, err := sess.ApplyFilters(c)
	require.NoError(t, err)
	require.Len(t, counties, 1)
	assert.Equal(t, "Fulton", counties[0].CountyName)

	assert.Equal(t, 50.0, sess.Criteria().RadiusMiles, "radius is not changed by filtering")
	assert.Len(t, sess.AllCounties(), 3, "cache is untouched")
	_, lists := store.counts()
	assert.Equal(t, 1, lists, "filtering never queries the store")

	c.Population = Range{Min: 10, Max: 1}
	_, err = sess.ApplyFilters(c)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSession_SetCriteriaNonRadiusRefiltersSynchronously(t *testing.T) {
	store := atlantaStore()
	svc := NewService(store, testOptions())
	sess := svc.NewSession()
	_, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)

	c := sess.Criteria()
	c.States = []string{"tn"}
	rescheduled, err := sess.SetCriteria(c)
	require.NoError(t, err)
	assert.False(t, rescheduled)
	assert.Empty(t, sess.Counties())
	assert.Equal(t, []string{"TN"}, sess.Criteria().States)
	assert.Equal(t, StateReady, sess.State())
	assert.False(t, sess.Pending())

	_, lists := store.counts()
	assert.Equal(t, 1, lists)
}

func TestSession_SetCriteriaBeforeSearch(t *testing.T) {
	svc := NewService(atlantaStore(), testOptions())
	sess := svc.NewSession()

	rescheduled, err := sess.SetCriteria(DefaultCriteria(75))
	require.NoError(t, err)
	assert.False(t, rescheduled, "no search to repeat yet")
	assert.Equal(t, StateIdle, sess.State())
	assert.Equal(t, 75.0, sess.Criteria().RadiusMiles)

	_, err = sess.SetCriteria(DefaultCriteria(-1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSession_RadiusChangeDebouncesFullSearch(t *testing.T) {
	store := atlantaStore()
	svc := NewService(store, testOptions())
	sess := svc.NewSession()
	_, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)

	start := time.Now()
	c := sess.Criteria()
	c.RadiusMiles = 100
	rescheduled, err := sess.SetCriteria(c)
	require.NoError(t, err)
	assert.True(t, rescheduled)
	assert.True(t, sess.Pending())

	_, lists := store.counts()
	assert.Equal(t, 1, lists, "no immediate search")

	time.Sleep(150 * time.Millisecond)
	_, lists = store.counts()
	assert.Equal(t, 1, lists, "still inside the quiet period")

	require.Eventually(t, func() bool {
		_, lists := store.counts()
		return lists == 2 && sess.State() == StateReady
	}, 3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)

	assert.Equal(t, 100.0, sess.Criteria().RadiusMiles)
	assert.Len(t, sess.AllCounties(), 5, "Hall and Bibb join at 100 miles")
	assert.False(t, sess.Pending())
	assert.Equal(t, uint64(2), sess.Generation())
}

func TestSession_RadiusBurstFiresOnce(t *testing.T) {
	store := atlantaStore()
	opts := testOptions()
	opts.DebounceInterval = 40 * time.Millisecond
	svc := NewService(store, opts)
	sess := svc.NewSession()
	_, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)

	for _, r := range []float64{60, 70, 80, 90, 100} {
		c := sess.Criteria()
		c.RadiusMiles = r
		_, err := sess.SetCriteria(c)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		_, lists := store.counts()
		return lists == 2 && sess.State() == StateReady
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	_, lists := store.counts()
	assert.Equal(t, 2, lists, "only the settled radius searches")
	assert.Equal(t, 100.0, sess.Criteria().RadiusMiles)
}

func TestSession_ExplicitSearchCancelsPendingRadius(t *testing.T) {
	store := atlantaStore()
	opts := testOptions()
	opts.DebounceInterval = 40 * time.Millisecond
	svc := NewService(store, opts)
	sess := svc.NewSession()
	_, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)

	c := sess.Criteria()
	c.RadiusMiles = 100
	_, err = sess.SetCriteria(c)
	require.NoError(t, err)

	_, err = sess.Search(context.Background(), "30309", 25)
	require.NoError(t, err)
	assert.False(t, sess.Pending())

	time.Sleep(100 * time.Millisecond)
	_, lists := store.counts()
	assert.Equal(t, 2, lists)
	assert.Equal(t, 25.0, sess.Criteria().RadiusMiles)
}

func TestSession_StaleResultNotCommitted(t *testing.T) {
	store := atlantaStore()
	gate := make(chan struct{})
	store.gate = gate
	svc := NewService(store, testOptions())
	sess := svc.NewSession()

	type outcome struct {
		res *SearchResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := sess.Search(context.Background(), "30309", 50)
		first <- outcome{res, err}
	}()

	require.Eventually(t, func() bool {
		_, lists := store.counts()
		return lists == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateSearching, sess.State())

	store.mu.Lock()
	store.gate = nil
	store.mu.Unlock()

	res, err := sess.Search(context.Background(), "30309", 5)
	require.NoError(t, err)
	require.Len(t, res.Counties, 1)

	close(gate)
	out := <-first
	require.NoError(t, out.err)
	assert.Len(t, out.res.Counties, 3, "the caller still gets its own result")

	assert.Equal(t, StateReady, sess.State())
	assert.Equal(t, uint64(2), sess.Generation())
	assert.Equal(t, 5.0, sess.Criteria().RadiusMiles)
	require.Len(t, sess.AllCounties(), 1)
	assert.Equal(t, "Fulton", sess.AllCounties()[0].CountyName)
}

func TestSession_CloseStopsPendingSearch(t *testing.T) {
	store := atlantaStore()
	opts := testOptions()
	opts.DebounceInterval = 20 * time.Millisecond
	svc := NewService(store, opts)
	sess := svc.NewSession()
	_, err := sess.Search(context.Background(), "30309", 50)
	require.NoError(t, err)

	c := sess.Criteria()
	c.RadiusMiles = 80
	_, err = sess.SetCriteria(c)
	require.NoError(t, err)
	require.NoError(t, svc.CloseSession(sess.ID()))

	time.Sleep(60 * time.Millisecond)
	_, lists := store.counts()
	assert.Equal(t, 1, lists)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "searching", StateSearching.String())
	assert.Equal(t, "search_failed", StateSearchFailed.String())
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "unknown", State(42).String())

	b, err := StateReady.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ready", string(b))

	var st State
	require.NoError(t, st.UnmarshalText([]byte("search_failed")))
	assert.Equal(t, StateSearchFailed, st)
	assert.ErrorIs(t, st.UnmarshalText([]byte("bogus")), ErrInvalidInput)
}

package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle position of a Session.
type State int

const (
	// StateIdle means no search has been issued.
	StateIdle State = iota
	// StateSearching means a full search is in flight.
	StateSearching
	// StateSearchFailed means the last search hit a data store error.
	StateSearchFailed
	// StateEmpty means the last search completed with no counties.
	StateEmpty
	// StateReady means counties are cached and filterable.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateSearchFailed:
		return "search_failed"
	case StateEmpty:
		return "empty"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON and YAML.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for st := StateIdle; st <= StateReady; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return invalidInput("unknown session state %q", b)
}

// Session holds one user's search: criteria, the cached county list from the
// last completed search and the filtered view of it. Radius changes re-run the
// search after a quiet period; every other criteria change only re-filters.
type Session struct {
	id  string
	svc *Service

	debouncer *Debouncer

	mu         sync.Mutex
	state      State
	criteria   Criteria
	postalCode string
	center     *Center
	all        []CountyAggregate
	filtered   []CountyAggregate
	cached     bool
	cityCount  int
	lastErr    error
	generation uint64
	updatedAt  time.Time
	lastUsed   time.Time
}

func newSession(id string, svc *Service) *Session {
	now := svc.now()
	return &Session{
		id:        id,
		svc:       svc,
		debouncer: NewDebouncer(svc.opts.DebounceInterval),
		criteria:  DefaultCriteria(svc.opts.DefaultRadiusMiles),
		updatedAt: now,
		lastUsed:  now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Criteria returns a copy of the current criteria.
func (s *Session) Criteria() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCriteria(s.criteria)
}

// Counties returns the filtered view of the last completed search.
func (s *Session) Counties() []CountyAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CountyAggregate(nil), s.filtered...)
}

// AllCounties returns the unfiltered cache of the last completed search.
func (s *Session) AllCounties() []CountyAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CountyAggregate(nil), s.all...)
}

// Center returns the resolved center of the last completed search, or nil.
func (s *Session) Center() *Center {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center
}

// Err returns the error of the last search, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Generation returns the request generation of the newest search started.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// HasResults reports whether a successful search has populated the county
// cache, which is what ApplyFilters requires.
func (s *Session) HasResults() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// Pending reports whether a debounced re-search is waiting to fire.
func (s *Session) Pending() bool {
	return s.debouncer.Pending()
}

// Search runs a full search immediately, cancelling any pending debounced
// re-search. The returned result carries the filtered county view.
func (s *Session) Search(ctx context.Context, postalCode string, radiusMiles float64) (*SearchResult, error) {
	s.touch()
	if err := s.svc.ValidateRadius(radiusMiles); err != nil {
		s.setErr(err)
		return nil, err
	}
	zip, err := ValidatePostalCode(postalCode)
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	s.debouncer.Cancel()
	return s.run(ctx, zip, radiusMiles)
}

// SetCriteria replaces the criteria. A radius change after an initial search
// schedules a debounced full search and returns true; any other change
// re-filters the cache synchronously.
func (s *Session) SetCriteria(c Criteria) (bool, error) {
	s.touch()
	c = cloneCriteria(c)
	if err := c.Validate(); err != nil {
		return false, err
	}
	if err := s.svc.ValidateRadius(c.RadiusMiles); err != nil {
		return false, err
	}

	s.mu.Lock()
	radiusChanged := c.RadiusMiles != s.criteria.RadiusMiles
	s.criteria = c
	if s.cached {
		s.filtered = FilterCounties(s.all, c)
		s.updatedAt = s.svc.now()
	}
	postalCode := s.postalCode
	s.mu.Unlock()

	if !radiusChanged || postalCode == "" {
		return false, nil
	}

	s.debouncer.Schedule(func() {
		zap.L().Debug("location: debounced re-search firing",
			zap.String("session", s.id),
			zap.Float64("radius_miles", c.RadiusMiles),
		)
		ctx, cancel := context.WithTimeout(context.Background(), s.svc.opts.SearchTimeout)
		defer cancel()
		s.mu.Lock()
		zip, radius := s.postalCode, s.criteria.RadiusMiles
		s.mu.Unlock()
		_, _ = s.run(ctx, zip, radius)
	})
	return true, nil
}

// ApplyFilters re-filters the cached counties with c without touching the data
// store. The radius of c is ignored; use SetCriteria to change it.
func (s *Session) ApplyFilters(c Criteria) ([]CountyAggregate, error) {
	s.touch()
	c = cloneCriteria(c)
	s.mu.Lock()
	c.RadiusMiles = s.criteria.RadiusMiles
	s.mu.Unlock()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cached {
		return nil, ErrNoPriorSearch
	}
	s.criteria = c
	s.filtered = FilterCounties(s.all, c)
	s.updatedAt = s.svc.now()
	return append([]CountyAggregate(nil), s.filtered...), nil
}

// Close cancels any pending re-search. Searches already running still finish.
func (s *Session) Close() {
	s.debouncer.Close()
}

// run executes one full search under a fresh generation and commits the
// outcome only if no newer search has started meanwhile.
func (s *Session) run(ctx context.Context, zip string, radiusMiles float64) (*SearchResult, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state = StateSearching
	s.postalCode = zip
	s.criteria.RadiusMiles = radiusMiles
	s.mu.Unlock()

	res, err := s.svc.Search(ctx, zip, radiusMiles)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		zap.L().Debug("location: discarding stale search result",
			zap.String("session", s.id),
			zap.Uint64("generation", gen),
			zap.Uint64("current", s.generation),
		)
		return res, err
	}

	s.updatedAt = s.svc.now()
	s.lastErr = err
	switch {
	case err == nil:
		s.commit(res)
		if len(s.all) == 0 {
			s.state = StateEmpty
		} else {
			s.state = StateReady
		}
	case errors.Is(err, ErrNotFound):
		// The search completed with nothing to show. The cache only counts as
		// filterable if an earlier search succeeded.
		s.all = []CountyAggregate{}
		s.filtered = []CountyAggregate{}
		s.cityCount = 0
		s.center = nil
		s.state = StateEmpty
	default:
		// Keep the counties from the last successful search.
		s.state = StateSearchFailed
	}
	if res == nil {
		return nil, err
	}
	out := *res
	out.Counties = append([]CountyAggregate(nil), s.filtered...)
	return &out, err
}

func (s *Session) commit(res *SearchResult) {
	s.all = res.Counties
	s.filtered = FilterCounties(s.all, s.criteria)
	s.cached = true
	s.cityCount = res.CityCount
	s.center = nil
	if res.Center != nil {
		s.center = &Center{
			PostalCode: res.PostalCode,
			City:       res.CenterCity,
			StateName:  res.CenterState,
			Coord:      res.Center,
		}
	}
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = s.svc.now()
	s.mu.Unlock()
}

func (s *Session) lastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Snapshot is a point-in-time copy of a session for API responses.
type Snapshot struct {
	ID            string            `json:"id"`
	State         State             `json:"state"`
	PostalCode    string            `json:"postal_code,omitempty"`
	Criteria      Criteria          `json:"criteria"`
	Center        *Center           `json:"center"`
	Counties      []CountyAggregate `json:"counties"`
	TotalCounties int               `json:"total_counties"`
	HasResults    bool              `json:"has_results"`
	CityCount     int               `json:"city_count"`
	Pending       bool              `json:"pending"`
	Generation    uint64            `json:"generation"`
	Error         string            `json:"error,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	pending := s.debouncer.Pending()
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:            s.id,
		State:         s.state,
		PostalCode:    s.postalCode,
		Criteria:      cloneCriteria(s.criteria),
		Center:        s.center,
		Counties:      append([]CountyAggregate{}, s.filtered...),
		TotalCounties: len(s.all),
		HasResults:    s.cached,
		CityCount:     s.cityCount,
		Pending:       pending,
		Generation:    s.generation,
		UpdatedAt:     s.updatedAt,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

func cloneCriteria(c Criteria) Criteria {
	c.States = append([]string{}, c.States...)
	return c
}

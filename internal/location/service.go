package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options tunes a Service. Zero values fall back to the defaults below.
type Options struct {
	DefaultRadiusMiles float64
	// MaxRadiusMiles caps accepted radii; 0 disables the cap.
	MaxRadiusMiles   float64
	DebounceInterval time.Duration
	SearchTimeout    time.Duration
	SessionTTL       time.Duration
}

// Defaults used when an Options field is zero.
const (
	DefaultRadiusMiles      = 50.0
	DefaultDebounceInterval = 300 * time.Millisecond
	DefaultSearchTimeout    = 15 * time.Second
	DefaultSessionTTL       = time.Hour
)

func (o Options) withDefaults() Options {
	if o.DefaultRadiusMiles <= 0 {
		o.DefaultRadiusMiles = DefaultRadiusMiles
	}
	if o.DebounceInterval <= 0 {
		o.DebounceInterval = DefaultDebounceInterval
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = DefaultSearchTimeout
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = DefaultSessionTTL
	}
	return o
}

// SearchResult is the outcome of one full search.
type SearchResult struct {
	PostalCode     string            `json:"postal_code"`
	RadiusMiles    float64           `json:"radius_miles"`
	Center         *Coord            `json:"center"`
	CenterCity     string            `json:"center_city,omitempty"`
	CenterState    string            `json:"center_state,omitempty"`
	Counties       []CountyAggregate `json:"counties"`
	CandidateCount int               `json:"candidate_count"`
	CityCount      int               `json:"city_count"`
}

// Service runs the search pipeline and owns the session registry.
type Service struct {
	store Store
	opts  Options

	mu       sync.Mutex
	sessions map[string]*Session

	now func() time.Time
}

// NewService creates a Service backed by store.
func NewService(store Store, opts Options) *Service {
	return &Service{
		store:    store,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Options returns the effective options.
func (s *Service) Options() Options {
	return s.opts
}

// ValidateRadius rejects non-positive, non-finite and over-limit radii.
func (s *Service) ValidateRadius(radiusMiles float64) error {
	c := Criteria{RadiusMiles: radiusMiles}
	if err := c.Validate(); err != nil {
		return err
	}
	if s.opts.MaxRadiusMiles > 0 && radiusMiles > s.opts.MaxRadiusMiles {
		return invalidInput("radius %v exceeds the maximum of %v miles", radiusMiles, s.opts.MaxRadiusMiles)
	}
	return nil
}

// Search resolves postalCode and returns every county with a city inside
// radiusMiles, sorted by distance. When the postal code is unknown the result
// is still returned, empty and without a center, alongside a NotFoundError.
func (s *Service) Search(ctx context.Context, postalCode string, radiusMiles float64) (*SearchResult, error) {
	log := zap.L().With(zap.String("component", "location.search"))
	start := time.Now()

	if err := s.ValidateRadius(radiusMiles); err != nil {
		return nil, err
	}
	zip, err := ValidatePostalCode(postalCode)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	result := &SearchResult{
		PostalCode:  zip,
		RadiusMiles: radiusMiles,
		Counties:    []CountyAggregate{},
	}

	center, err := ResolveCenter(ctx, s.store, zip)
	if errors.Is(err, ErrNotFound) {
		log.Info("postal code not found", zap.String("postal_code", zip))
		return result, err
	}
	if err != nil {
		log.Error("resolve center failed", zap.String("postal_code", zip), zap.Error(err))
		return nil, err
	}
	result.Center = center.Coord
	result.CenterCity = center.City
	result.CenterState = center.StateName

	records, err := FetchCandidates(ctx, s.store, *center.Coord, radiusMiles)
	if err != nil {
		log.Error("fetch candidates failed",
			zap.String("postal_code", zip),
			zap.Float64("radius_miles", radiusMiles),
			zap.Error(err),
		)
		return nil, err
	}

	cities := EnrichCities(records, *center.Coord, radiusMiles)
	result.Counties = AggregateCounties(cities, center.Coord)
	result.CandidateCount = len(records)
	result.CityCount = len(cities)

	log.Info("search complete",
		zap.String("postal_code", zip),
		zap.Float64("radius_miles", radiusMiles),
		zap.Int("candidates", len(records)),
		zap.Int("cities", len(cities)),
		zap.Int("counties", len(result.Counties)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// NewSession registers a session with default criteria.
func (s *Service) NewSession() *Session {
	sess := newSession(uuid.NewString(), s)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

// Session returns the session with id and marks it as used.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, eris.Wrapf(ErrSessionNotFound, "location: session %s", id)
	}
	sess.touch()
	return sess, nil
}

// CloseSession stops and forgets the session with id.
func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return eris.Wrapf(ErrSessionNotFound, "location: session %s", id)
	}
	sess.Close()
	return nil
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many it removed.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.opts.SessionTTL)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.lastUsedAt().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		zap.L().Debug("location: swept idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Close stops every session.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

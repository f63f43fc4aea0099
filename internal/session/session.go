// Package session keeps per-view state for open map and report views.
// Views are held in LRU+TTL caches; a view that expires or is pushed out
// is torn down.
package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"delhidash/internal/cache"
	"delhidash/internal/observability"
	"delhidash/internal/report"
	"delhidash/internal/zonemap"
	"delhidash/internal/zonemap/leaflet"
	"delhidash/internal/zones"
)

var ErrNotFound = errors.New("view session not found")

// Options configure a Store. Zero values select defaults.
type Options struct {
	TTL            time.Duration
	MaxViews       int
	MapLoadTimeout time.Duration
	Clock          clockwork.Clock
	Logger         *slog.Logger
	Metrics        *observability.Metrics
}

// Store owns all live view sessions.
type Store struct {
	maps    *cache.LRUCache[*MapView]
	reports *cache.LRUCache[*ReportView]
	opts    Options
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.MaxViews <= 0 {
		opts.MaxViews = 500
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}

	s := &Store{opts: opts}
	s.maps = cache.NewLRUCache[*MapView](opts.MaxViews, opts.TTL,
		cache.WithClock[*MapView](opts.Clock),
		cache.WithEvict[*MapView](func(id string, mv *MapView) {
			mv.teardown()
			opts.Metrics.ActiveMapViews.Dec()
			opts.Metrics.SessionEvictions.Inc()
			opts.Logger.Debug("Map view closed", "session_id", id)
		}),
	)
	s.reports = cache.NewLRUCache[*ReportView](opts.MaxViews, opts.TTL,
		cache.WithClock[*ReportView](opts.Clock),
		cache.WithEvict[*ReportView](func(id string, rv *ReportView) {
			rv.Tracker.Close()
			opts.Metrics.SessionEvictions.Inc()
		}),
	)
	return s
}

// Cleaners exposes the caches for periodic expiry.
func (s *Store) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{s.maps, s.reports}
}

// NewMapView creates and mounts a map view with the given initial filter.
func (s *Store) NewMapView(initial zones.FilterStatus) (*MapView, error) {
	w := leaflet.New()
	id := uuid.NewString()
	logger := s.opts.Logger.With("session_id", id)
	metrics := s.opts.Metrics

	a := zonemap.New(w, zonemap.NewScope(zonemap.Leaflet, w), zonemap.Options{
		Clock:        s.opts.Clock,
		LoadTimeout:  s.opts.MapLoadTimeout,
		Logger:       logger,
		InitialState: initial,
		OnTransition: func(from, to zonemap.Phase) {
			metrics.MapTransitions.WithLabelValues(from.String(), to.String()).Inc()
		},
	})
	if err := a.Mount(); err != nil {
		return nil, err
	}

	mv := &MapView{ID: id, Adapter: a, Widget: w, logger: logger}
	s.maps.Set(id, mv)
	metrics.ActiveMapViews.Inc()
	return mv, nil
}

// MapView looks up a live map view.
func (s *Store) MapView(id string) (*MapView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	mv, ok := s.maps.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return mv, nil
}

// EndMapView tears down and forgets a map view.
func (s *Store) EndMapView(id string) {
	s.maps.Delete(id)
}

// ReportView returns the report view for id, creating one with a fresh id
// when id is empty, malformed or unknown.
func (s *Store) ReportView(id string) *ReportView {
	if _, err := uuid.Parse(id); err == nil {
		if rv, ok := s.reports.Get(id); ok {
			return rv
		}
	} else {
		id = uuid.NewString()
	}
	rv := &ReportView{ID: id, Tracker: report.NewTracker()}
	s.reports.Set(id, rv)
	return rv
}

// FindReportView looks up a live report view without creating one.
func (s *Store) FindReportView(id string) (*ReportView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	rv, ok := s.reports.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return rv, nil
}

// ReportView is the state of one dashboard page.
type ReportView struct {
	ID      string
	Tracker *report.Tracker
}

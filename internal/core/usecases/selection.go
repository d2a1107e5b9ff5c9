package usecases

import (
	"context"
	"sync"

	"github.com/samirrijal/racemap/internal/core/domain"
)

// RouteLoader is the never-failing pipeline boundary used by Selector.
type RouteLoader interface {
	Load(ctx context.Context, route domain.RouteID) *domain.RouteGeometry
}

// Selector tracks the route currently shown by one map surface. When the
// route changes while an earlier load is still running, only the result of
// the newest selection is applied.
type Selector struct {
	loader RouteLoader

	mu      sync.Mutex
	gen     uint64
	current domain.RouteID
	applied *domain.RouteGeometry
}

// NewSelector creates a Selector backed by loader.
func NewSelector(loader RouteLoader) *Selector {
	return &Selector{loader: loader}
}

// Select records route as the current selection, loads it, and returns the
// geometry with ok=true if no newer selection was made in the meantime.
// A superseded load returns ok=false and its result is discarded.
func (s *Selector) Select(ctx context.Context, route domain.RouteID) (*domain.RouteGeometry, bool) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.current = route
	s.mu.Unlock()

	geom := s.loader.Load(ctx, route)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, false
	}
	s.applied = geom
	return geom, true
}

// Current returns the selected route and the last applied geometry, which
// is nil until a load completes.
func (s *Selector) Current() (domain.RouteID, *domain.RouteGeometry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.applied
}

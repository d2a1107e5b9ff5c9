package usecases

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/core/ports"
	"github.com/samirrijal/racemap/internal/pkg/logging"
	"github.com/samirrijal/racemap/internal/pkg/metrics"
	"github.com/samirrijal/racemap/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/racemap/internal/core/usecases")

// RouteService runs the fetch, parse and build pipeline for event routes.
type RouteService struct {
	source   ports.TrackSource
	parse    ports.TrackParser
	cache    ports.CacheService
	events   ports.EventPublisher
	cacheTTL int
}

// NewRouteService creates a new RouteService. cache and events may be nil.
func NewRouteService(source ports.TrackSource, parse ports.TrackParser, cache ports.CacheService, events ports.EventPublisher, cacheTTLSeconds int) *RouteService {
	return &RouteService{
		source:   source,
		parse:    parse,
		cache:    cache,
		events:   events,
		cacheTTL: cacheTTLSeconds,
	}
}

// Routes lists the known event routes.
func (s *RouteService) Routes() []domain.RouteInfo {
	return KnownRouteInfo()
}

// Build returns the geometry of a known route. Fetch and parse failures are
// returned as *domain.IOError and *domain.ParseError.
func (s *RouteService) Build(ctx context.Context, route domain.RouteID) (*domain.RouteGeometry, error) {
	if route == domain.RouteUnknown {
		return nil, domain.ErrUnknownRoute
	}
	return s.BuildPath(ctx, route.TrackFile())
}

// BuildPath returns the geometry of the track at path. The route identity,
// and so the initial view, is derived from the path.
func (s *RouteService) BuildPath(ctx context.Context, path string) (*domain.RouteGeometry, error) {
	route := domain.ParseRouteID(path)

	ctx, span := tracer.Start(ctx, "RouteService.BuildPath")
	defer span.End()
	span.SetAttributes(telemetry.AttrRoute.String(route.Slug()), telemetry.AttrTrackPath.String(path))

	start := time.Now()
	defer func() {
		metrics.PipelineDuration.WithLabelValues(route.Slug()).Observe(time.Since(start).Seconds())
	}()

	raw, err := s.fetch(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch")
		return nil, err
	}

	track, err := s.parse(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse")
		return nil, err
	}
	metrics.TrackPoints.WithLabelValues(route.Slug()).Set(float64(len(track)))

	geom := BuildGeometry(track, route)
	span.SetAttributes(
		telemetry.AttrTrackPoints.Int(len(track)),
		telemetry.AttrTrackTotalKm.Float64(geom.TotalDistanceKm),
		telemetry.AttrTrackMarkers.Int(len(geom.Markers)),
	)

	if s.events != nil {
		if err := s.events.PublishGeometryBuilt(ctx, &geom); err != nil {
			logging.FromContext(ctx).Warn("publish geometry event failed", "route", route.Slug(), "error", err)
		}
	}

	return &geom, nil
}

// Load is the pipeline boundary used by the map surfaces: it never fails.
// Fetch and parse errors are logged and turned into a degraded geometry
// with an empty track and the route's view, so the map still renders tiles.
func (s *RouteService) Load(ctx context.Context, route domain.RouteID) *domain.RouteGeometry {
	geom, err := s.Build(ctx, route)
	if err == nil {
		return geom
	}
	return s.degrade(ctx, route, err)
}

// LoadPath is Load for a host-supplied track path.
func (s *RouteService) LoadPath(ctx context.Context, path string) *domain.RouteGeometry {
	geom, err := s.BuildPath(ctx, path)
	if err == nil {
		return geom
	}
	return s.degrade(ctx, domain.ParseRouteID(path), err)
}

func (s *RouteService) degrade(ctx context.Context, route domain.RouteID, err error) *domain.RouteGeometry {
	kind := failureKind(err)
	metrics.PipelineFailures.WithLabelValues(route.Slug(), kind).Inc()
	logging.FromContext(ctx).Warn("route pipeline degraded",
		"route", route.Slug(),
		"kind", kind,
		"error", err,
	)

	geom := BuildGeometry(domain.Track{}, route)
	geom.Degraded = true
	geom.Reason = kind
	return &geom
}

func failureKind(err error) string {
	var ioErr *domain.IOError
	var parseErr *domain.ParseError
	switch {
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &parseErr):
		return "parse_" + parseErr.Kind.String()
	case errors.Is(err, domain.ErrUnknownRoute):
		return "unknown_route"
	}
	return "internal"
}

func rawTrackKey(path string) string { return "tracks:raw:" + path }

// Invalidate drops the cached raw content of the track at path so the next
// load reads it from the source again.
func (s *RouteService) Invalidate(ctx context.Context, path string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, rawTrackKey(path))
}

// fetch reads raw track content, consulting the cache first. Cache failures
// fall through to the source.
func (s *RouteService) fetch(ctx context.Context, path string) (string, error) {
	cacheKey := rawTrackKey(path)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			metrics.CacheHits.WithLabelValues("track_raw").Inc()
			return string(data), nil
		}
		metrics.CacheMisses.WithLabelValues("track_raw").Inc()
	}

	raw, err := s.source.Fetch(ctx, path)
	if err != nil {
		var ioErr *domain.IOError
		if errors.As(err, &ioErr) {
			return "", err
		}
		return "", &domain.IOError{Path: path, Err: err}
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, []byte(raw), s.cacheTTL); err != nil {
			logging.FromContext(ctx).Debug("cache raw track failed", "path", path, "error", err)
		}
	}
	return raw, nil
}


package http

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/racemap/internal/adapters/render"
	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/core/usecases"
)

const (
	headerDegraded    = "X-Route-Degraded"
	headerPlaceholder = "X-Map-Placeholder"
)

// TrackSummary is one stored track file.
type TrackSummary struct {
	Path  string         `json:"path"`
	Route domain.RouteID `json:"route"`
}

// routeParam resolves the :id path parameter. Unknown slugs are rejected.
func routeParam(c *fiber.Ctx) (domain.RouteID, bool) {
	route := domain.ParseRouteID(c.Params("id"))
	return route, route != domain.RouteUnknown
}

// zoomQuery reads the optional zoom override. 0 or absent keeps the route's
// own zoom.
func zoomQuery(c *fiber.Ctx) (int, error) {
	raw := c.Query("zoom")
	if raw == "" {
		return 0, nil
	}
	z, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return z, nil
}

// ListRoutesHandler returns the fixed route table.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Routes.Routes())
	}
}

// GetRouteHandler runs the route pipeline and returns the geometry. A track
// that cannot be loaded yields a degraded geometry with status 200.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, ok := routeParam(c)
		if !ok {
			return errNotFound(c, "unknown route: "+c.Params("id"))
		}
		zoom, err := zoomQuery(c)
		if err != nil {
			return errBadRequest(c, "zoom must be an integer")
		}

		geom := *deps.Routes.Load(c.UserContext(), route)
		geom.View = geom.View.WithZoom(zoom)
		if geom.Degraded {
			c.Set(headerDegraded, geom.Reason)
		}
		return c.JSON(geom)
	}
}

// RouteGeoJSONHandler returns the route as a GeoJSON FeatureCollection: the
// path LineString, the start Point and one Point per km marker.
func RouteGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, ok := routeParam(c)
		if !ok {
			return errNotFound(c, "unknown route: "+c.Params("id"))
		}

		geom := deps.Routes.Load(c.UserContext(), route)
		data, err := routeFeatures(geom).MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		if geom.Degraded {
			c.Set(headerDegraded, geom.Reason)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

func orbPoint(p domain.Coordinate) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func routeFeatures(geom *domain.RouteGeometry) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if b, ok := geom.Track.Bounds(); ok {
		fc.BBox = geojson.BBox{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
	}

	if geom.Track.Renderable() {
		line := make(orb.LineString, 0, len(geom.Track))
		for _, p := range geom.Track {
			line = append(line, orbPoint(p))
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "path"
		f.Properties["route"] = geom.Route.Slug()
		f.Properties["total_distance_km"] = geom.TotalDistanceKm
		fc.Append(f)
	}

	if len(geom.Track) > 0 {
		f := geojson.NewFeature(orbPoint(geom.Track[0]))
		f.Properties["kind"] = "start"
		f.Properties["title"] = "Start Point"
		f.Properties["message"] = "Get ready for an amazing run!"
		fc.Append(f)
	}

	for _, m := range geom.Markers {
		f := geojson.NewFeature(orbPoint(m.Position))
		f.Properties["kind"] = "km"
		f.Properties["km"] = m.Km
		f.Properties["label"] = strconv.Itoa(m.Km) + " km"
		fc.Append(f)
	}

	return fc
}

// RouteMapImageHandler renders the route over base map tiles as PNG. Each
// request owns one MapView for its whole lifecycle. When the renderer cannot
// initialise, the loading placeholder is served instead.
func RouteMapImageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, ok := routeParam(c)
		if !ok {
			return errNotFound(c, "unknown route: "+c.Params("id"))
		}
		zoom, err := zoomQuery(c)
		if err != nil {
			return errBadRequest(c, "zoom must be an integer")
		}

		ctx := c.UserContext()
		geom := deps.Routes.Load(ctx, route)

		view := render.NewMapView(deps.Tiles, deps.Map)
		defer view.Unmount()
		if err := view.Init(ctx); err != nil {
			LoggerFromCtx(ctx).Error("map renderer unavailable", "route", route.Slug(), "error", err)
		}

		frame, err := view.Render(ctx, geom, zoom)
		if err != nil {
			return errInternal(c, err.Error())
		}

		var buf bytes.Buffer
		if err := frame.EncodePNG(&buf); err != nil {
			return errInternal(c, err.Error())
		}

		if frame.Placeholder {
			c.Set(headerPlaceholder, "true")
			c.Set(fiber.HeaderCacheControl, "no-store")
		}
		if geom.Degraded {
			c.Set(headerDegraded, geom.Reason)
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(buf.Bytes())
	}
}

// RouteMapPageHandler serves the interactive Leaflet page for a route.
func RouteMapPageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, ok := routeParam(c)
		if !ok {
			return errNotFound(c, "unknown route: "+c.Params("id"))
		}
		zoom, err := zoomQuery(c)
		if err != nil {
			return errBadRequest(c, "zoom must be an integer")
		}

		view := usecases.SelectView(route).WithZoom(zoom)

		var buf bytes.Buffer
		if err := renderMapPage(&buf, route, view, deps.TileConfig, deps.Map.Render); err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(buf.Bytes())
	}
}

// StartIconHandler serves the start marker icon used by the map page.
func StartIconHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := render.StartIconPNG(c.UserContext(), deps.Map.HTTPClient, deps.Map.Render.StartIconPath)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("start icon unavailable", "error", err)
			return errInternal(c, "start icon unavailable")
		}
		c.Set(fiber.HeaderContentType, "image/png")
		c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
		return c.Send(data)
	}
}

// ListTracksHandler lists stored track files with offset pagination.
func ListTracksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Tracks == nil {
			return errUnavailable(c, "track store not configured")
		}
		pg, err := parsePagination(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		paths, err := deps.Tracks.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		items := make([]TrackSummary, 0, len(paths))
		for _, p := range paths {
			items = append(items, TrackSummary{Path: p, Route: domain.ParseRouteID(p)})
		}
		if q := strings.ToLower(c.Query("route")); q != "" {
			want := domain.ParseRouteID(q)
			filtered := items[:0]
			for _, it := range items {
				if it.Route == want {
					filtered = append(filtered, it)
				}
			}
			items = filtered
		}

		data := page(items, &pg)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

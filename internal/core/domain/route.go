package domain

import (
	"path"
	"strings"
)

// RouteID identifies one of the event's fixed running routes.
type RouteID int

const (
	RouteUnknown RouteID = iota
	RouteThreeK
	RouteFiveK
	RouteTenK
)

// KnownRoutes lists the event routes in display order.
var KnownRoutes = []RouteID{RouteThreeK, RouteFiveK, RouteTenK}

// ParseRouteID resolves a route slug ("3k", "5K") or one of the event's
// track file paths ("../10KM.gpx") to a RouteID.
func ParseRouteID(s string) RouteID {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(path.Base(s), ".gpx")
	switch s {
	case "3k", "3km":
		return RouteThreeK
	case "5k", "5km":
		return RouteFiveK
	case "10k", "10km":
		return RouteTenK
	}
	return RouteUnknown
}

// Slug returns the URL identifier of the route.
func (r RouteID) Slug() string {
	switch r {
	case RouteThreeK:
		return "3k"
	case RouteFiveK:
		return "5k"
	case RouteTenK:
		return "10k"
	}
	return "unknown"
}

func (r RouteID) String() string { return r.Slug() }

// Title is the human-readable route name shown by the host page.
func (r RouteID) Title() string {
	switch r {
	case RouteThreeK:
		return "3K Route"
	case RouteFiveK:
		return "5K Route"
	case RouteTenK:
		return "10K Route"
	}
	return "Route"
}

// TrackFile is the default track file name for the route, relative to the
// configured track source.
func (r RouteID) TrackFile() string {
	switch r {
	case RouteThreeK:
		return "3KM.gpx"
	case RouteFiveK:
		return "5KM.gpx"
	case RouteTenK:
		return "10KM.gpx"
	}
	return ""
}

// NominalKm is the advertised race distance, or 0 for an unknown route.
func (r RouteID) NominalKm() float64 {
	switch r {
	case RouteThreeK:
		return 3
	case RouteFiveK:
		return 5
	case RouteTenK:
		return 10
	}
	return 0
}

// MarshalText encodes the route as its slug.
func (r RouteID) MarshalText() ([]byte, error) {
	return []byte(r.Slug()), nil
}

// UnmarshalText decodes a slug or track path.
func (r *RouteID) UnmarshalText(b []byte) error {
	*r = ParseRouteID(string(b))
	return nil
}

// KmMarker marks the first track point past a whole-kilometer boundary.
type KmMarker struct {
	Position Coordinate `json:"position"`
	Km       int        `json:"km"`
}

// RouteView is the initial map viewport for a route.
type RouteView struct {
	Center Coordinate `json:"center"`
	Zoom   int        `json:"zoom"`
}

// Zoom levels accepted as a host override.
const (
	MinZoom = 1
	MaxZoom = 19
)

// WithZoom returns the view with its zoom replaced by override clamped to
// [MinZoom, MaxZoom]. A zero override keeps the view's own zoom.
func (v RouteView) WithZoom(override int) RouteView {
	if override == 0 {
		return v
	}
	v.Zoom = min(max(override, MinZoom), MaxZoom)
	return v
}

// RouteGeometry is the render-ready description of one route.
type RouteGeometry struct {
	Route           RouteID    `json:"route"`
	Track           Track      `json:"track"`
	TotalDistanceKm float64    `json:"total_distance_km"`
	Markers         []KmMarker `json:"markers"`
	View            RouteView  `json:"view"`

	// Degraded is set when the track could not be fetched or parsed; the
	// geometry then renders as tiles only.
	Degraded bool   `json:"degraded,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// RouteInfo describes a known route for listings.
type RouteInfo struct {
	ID        RouteID   `json:"id"`
	Title     string    `json:"title"`
	TrackFile string    `json:"track_file"`
	View      RouteView `json:"view"`
}

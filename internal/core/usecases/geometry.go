package usecases

import (
	"math"

	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/pkg/geospatial"
)

// Hand-tuned framing for each route. These are chosen for how the route
// sits on screen, not computed from the track.
var routeViews = map[domain.RouteID]domain.RouteView{
	domain.RouteTenK:   {Center: domain.Coordinate{Lat: 18.654543, Lon: 73.747570}, Zoom: 14},
	domain.RouteFiveK:  {Center: domain.Coordinate{Lat: 18.654368, Lon: 73.759124}, Zoom: 15},
	domain.RouteThreeK: {Center: domain.Coordinate{Lat: 18.648198, Lon: 73.757481}, Zoom: 15},
}

// FallbackView is used for routes without a tuned view.
var FallbackView = domain.RouteView{
	Center: domain.Coordinate{Lat: 18.654756, Lon: 73.749640},
	Zoom:   14,
}

// SelectView returns the initial viewport for a route.
func SelectView(route domain.RouteID) domain.RouteView {
	if v, ok := routeViews[route]; ok {
		return v
	}
	return FallbackView
}

// BuildGeometry computes the total distance, kilometer markers, and view for
// a track. A marker is emitted at the later point of every segment whose
// cumulative distance crosses a whole kilometer; the position is not
// interpolated onto the boundary.
func BuildGeometry(track domain.Track, route domain.RouteID) domain.RouteGeometry {
	geom := domain.RouteGeometry{
		Route:   route,
		Track:   track,
		Markers: []domain.KmMarker{},
		View:    SelectView(route),
	}

	var total float64
	for i := 1; i < len(track); i++ {
		prevTotal := total
		total += geospatial.DistanceKm(track[i-1], track[i])

		if math.Floor(total) > math.Floor(prevTotal) {
			geom.Markers = append(geom.Markers, domain.KmMarker{
				Position: track[i],
				Km:       int(math.Floor(total)),
			})
		}
	}
	geom.TotalDistanceKm = total

	return geom
}

// KnownRouteInfo lists the event routes with their track files and views.
func KnownRouteInfo() []domain.RouteInfo {
	infos := make([]domain.RouteInfo, 0, len(domain.KnownRoutes))
	for _, r := range domain.KnownRoutes {
		infos = append(infos, domain.RouteInfo{
			ID:        r,
			Title:     r.Title(),
			TrackFile: r.TrackFile(),
			View:      SelectView(r),
		})
	}
	return infos
}

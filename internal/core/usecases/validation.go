package usecases

import (
	"fmt"
	"math"

	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/pkg/geospatial"
)

const (
	// distanceTolerance is the accepted relative deviation from a route's
	// nominal length.
	distanceTolerance = 0.15
	// maxGapMeters flags consecutive points further apart than a GPS
	// recorder would plausibly log.
	maxGapMeters = 500
	// areaRadiusMeters bounds how far a point may lie from the route's view
	// center.
	areaRadiusMeters = 10_000
)

// ValidationReport summarises a track file check.
type ValidationReport struct {
	Path            string         `json:"path"`
	Route           domain.RouteID `json:"route"`
	Points          int            `json:"points"`
	TotalDistanceKm float64        `json:"total_distance_km"`
	Markers         int            `json:"markers"`
	Problems        []string       `json:"problems,omitempty"`
}

// OK reports whether no problems were found.
func (r ValidationReport) OK() bool { return len(r.Problems) == 0 }

// ValidateTrack checks a parsed track against the route its path names:
// total distance near the nominal length, no large gaps between points, and
// every point near the route's area.
func ValidateTrack(path string, track domain.Track) ValidationReport {
	route := domain.ParseRouteID(path)
	geom := BuildGeometry(track, route)

	report := ValidationReport{
		Path:            path,
		Route:           route,
		Points:          len(track),
		TotalDistanceKm: geom.TotalDistanceKm,
		Markers:         len(geom.Markers),
	}

	if !track.Renderable() {
		report.Problems = append(report.Problems, fmt.Sprintf("track has %d points, need at least 2", len(track)))
		return report
	}

	if nominal := route.NominalKm(); nominal > 0 {
		if dev := math.Abs(geom.TotalDistanceKm-nominal) / nominal; dev > distanceTolerance {
			report.Problems = append(report.Problems,
				fmt.Sprintf("total distance %.2f km deviates %.0f%% from %d km", geom.TotalDistanceKm, dev*100, int(nominal)))
		}
	}

	for i := 1; i < len(track); i++ {
		a, b := track[i-1], track[i]
		if gap := geospatial.Haversine(a.Lat, a.Lon, b.Lat, b.Lon); gap > maxGapMeters {
			report.Problems = append(report.Problems, fmt.Sprintf("gap of %.0f m before point %d", gap, i))
		}
	}

	area := geospatial.BoundingBox(geom.View.Center, areaRadiusMeters)
	outside := 0
	for _, p := range track {
		if !area.Contains(p) {
			outside++
		}
	}
	if outside > 0 {
		report.Problems = append(report.Problems, fmt.Sprintf("%d points outside the event area", outside))
	}

	return report
}

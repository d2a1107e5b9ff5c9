package geospatial

import (
	"math"

	"github.com/samirrijal/racemap/internal/core/domain"
)

const earthRadiusKm = 6371.0

// KmPerDegree is the arc length of one degree along a great circle.
const KmPerDegree = earthRadiusKm * math.Pi / 180

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm calculates the great-circle distance in kilometers between two
// coordinates. Routes are local, so nothing special is done near antipodes.
func DistanceKm(a, b domain.Coordinate) float64 {
	dLat := ToRadians(b.Lat - a.Lat)
	dLon := ToRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(ToRadians(a.Lat))*math.Cos(ToRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceKm(domain.Coordinate{Lat: lat1, Lon: lon1}, domain.Coordinate{Lat: lat2, Lon: lon2}) * 1000
}

// BoundingBox returns the box of the given radius in meters around center.
func BoundingBox(center domain.Coordinate, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / (KmPerDegree * 1000)
	lonDelta := radiusMeters / (KmPerDegree * 1000 * math.Cos(ToRadians(center.Lat)))

	return domain.Bounds{
		MinLat: center.Lat - latDelta,
		MinLon: center.Lon - lonDelta,
		MaxLat: center.Lat + latDelta,
		MaxLon: center.Lon + lonDelta,
	}
}

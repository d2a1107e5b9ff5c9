package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys used for pipeline instrumentation.
const (
	AttrRoute        = attribute.Key("route")
	AttrTrackPath    = attribute.Key("track.path")
	AttrTrackPoints  = attribute.Key("track.points")
	AttrTrackTotalKm = attribute.Key("track.total_km")
	AttrTrackMarkers = attribute.Key("track.markers")
)

package natsadapter

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/racemap/internal/core/domain"
)

// Subjects
const (
	geometrySubjectPrefix = "racemap.geometry."
	trackSubjectPrefix    = "racemap.tracks."
	contentTypeProtobuf   = "application/x-protobuf"

	// GeometrySubjects matches every geometry-built event.
	GeometrySubjects = geometrySubjectPrefix + ">"
)

// GeometryEvent is the decoded summary published after a geometry build.
type GeometryEvent struct {
	Route           domain.RouteID
	Points          int
	TotalDistanceKm float64
	Markers         int
	Zoom            int
	BuiltAt         time.Time
}

// encodeGeometryBuilt serialises a geometry summary as a protobuf Struct.
// The full track is not published.
func encodeGeometryBuilt(geom *domain.RouteGeometry, at time.Time) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"route":             geom.Route.Slug(),
		"points":            len(geom.Track),
		"total_distance_km": geom.TotalDistanceKm,
		"markers":           len(geom.Markers),
		"zoom":              geom.View.Zoom,
		"center_lat":        geom.View.Center.Lat,
		"center_lon":        geom.View.Center.Lon,
		"built_at":          at.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("build event struct: %w", err)
	}
	return proto.Marshal(s)
}

// DecodeGeometryBuilt parses a payload produced by the publisher.
func DecodeGeometryBuilt(data []byte) (*GeometryEvent, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	f := s.GetFields()

	ev := &GeometryEvent{
		Route:           domain.ParseRouteID(f["route"].GetStringValue()),
		Points:          int(f["points"].GetNumberValue()),
		TotalDistanceKm: f["total_distance_km"].GetNumberValue(),
		Markers:         int(f["markers"].GetNumberValue()),
		Zoom:            int(f["zoom"].GetNumberValue()),
	}
	if ts := f["built_at"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse built_at: %w", err)
		}
		ev.BuiltAt = t
	}
	return ev, nil
}

// encodeTrackUpdated wraps a track path and update time.
func encodeTrackUpdated(path string, at time.Time) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"path":       path,
		"updated_at": at.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func decodeTrackUpdated(data []byte) (string, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("unmarshal event: %w", err)
	}
	path := s.GetFields()["path"].GetStringValue()
	if path == "" {
		return "", fmt.Errorf("track event without path")
	}
	return path, nil
}

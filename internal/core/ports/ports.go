package ports

import (
	"context"
	"image"

	"github.com/samirrijal/racemap/internal/core/domain"
)

// TrackSource retrieves raw track file content for a path. Implementations
// do not retry; callers treat any error as an I/O failure.
type TrackSource interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// TrackParser turns raw track file content into an ordered track.
type TrackParser func(raw string) (domain.Track, error)

// TrackRepository persists raw track files.
type TrackRepository interface {
	TrackSource
	Upsert(ctx context.Context, path, content string) error
	List(ctx context.Context) ([]string, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes pipeline events to a message broker.
type EventPublisher interface {
	PublishGeometryBuilt(ctx context.Context, geom *domain.RouteGeometry) error
}

// TileSource supplies base map tiles in the slippy-map scheme.
type TileSource interface {
	Tile(ctx context.Context, z, x, y int) (image.Image, error)
	Attribution() string
}

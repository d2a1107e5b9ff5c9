package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/racemap/internal/adapters/postgres"
	"github.com/samirrijal/racemap/internal/adapters/render"
	"github.com/samirrijal/racemap/internal/adapters/valkey"
	"github.com/samirrijal/racemap/internal/core/ports"
	"github.com/samirrijal/racemap/internal/core/usecases"
	"github.com/samirrijal/racemap/internal/pkg/config"
)

// Dependencies holds all services needed by HTTP handlers. Tracks, NATS, DB
// and Cache are optional.
type Dependencies struct {
	Routes *usecases.RouteService
	Tiles  ports.TileSource
	Map    render.Options
	// TileConfig feeds the interactive page's tile layer.
	TileConfig config.TilesConfig
	Tracks     ports.TrackRepository
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
}

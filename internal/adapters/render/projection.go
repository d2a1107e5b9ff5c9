package render

import (
	"math"

	"github.com/samirrijal/racemap/internal/core/domain"
)

// deg2num converts a coordinate to fractional tile numbers at zoom.
func deg2num(c domain.Coordinate, zoom int) (float64, float64) {
	latRad := c.Lat * math.Pi / 180
	n := math.Pow(2, float64(zoom))
	xtile := (c.Lon + 180) / 360 * n
	ytile := (1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n
	return xtile, ytile
}

// viewport maps world pixels at one zoom onto a width x height canvas
// centered on a coordinate.
type viewport struct {
	zoom          int
	width, height int
	left, top     float64
}

func newViewport(view domain.RouteView, width, height int) viewport {
	cx, cy := deg2num(view.Center, view.Zoom)
	return viewport{
		zoom:   view.Zoom,
		width:  width,
		height: height,
		left:   cx*TileSize - float64(width)/2,
		top:    cy*TileSize - float64(height)/2,
	}
}

// project returns the canvas pixel of c.
func (v viewport) project(c domain.Coordinate) (float64, float64) {
	tx, ty := deg2num(c, v.zoom)
	return tx*TileSize - v.left, ty*TileSize - v.top
}

type tileRef struct {
	z, x, y int
	// canvas offset of the tile's top-left corner
	dx, dy int
}

// tiles lists the tiles covering the canvas. x wraps around the
// antimeridian; rows outside the world are skipped.
func (v viewport) tiles() []tileRef {
	n := 1 << v.zoom
	txMin := int(math.Floor(v.left / TileSize))
	tyMin := int(math.Floor(v.top / TileSize))
	txMax := int(math.Floor((v.left + float64(v.width) - 1) / TileSize))
	tyMax := int(math.Floor((v.top + float64(v.height) - 1) / TileSize))

	var refs []tileRef
	for ty := tyMin; ty <= tyMax; ty++ {
		if ty < 0 || ty >= n {
			continue
		}
		for tx := txMin; tx <= txMax; tx++ {
			refs = append(refs, tileRef{
				z:  v.zoom,
				x:  ((tx % n) + n) % n,
				y:  ty,
				dx: int(math.Round(float64(tx)*TileSize - v.left)),
				dy: int(math.Round(float64(ty)*TileSize - v.top)),
			})
		}
	}
	return refs
}

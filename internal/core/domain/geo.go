package domain

import "fmt"

// Coordinate represents a geographic coordinate (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within WGS 84 ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Track is an ordered sequence of coordinates in traversal order.
type Track []Coordinate

// Renderable reports whether the track has enough points to draw a path.
func (t Track) Renderable() bool {
	return len(t) >= 2
}

// Bounds returns the bounding box of the track. ok is false for an empty track.
func (t Track) Bounds() (b Bounds, ok bool) {
	if len(t) == 0 {
		return Bounds{}, false
	}
	b = Bounds{MinLat: t[0].Lat, MinLon: t[0].Lon, MaxLat: t[0].Lat, MaxLon: t[0].Lon}
	for _, p := range t[1:] {
		b.MinLat = min(b.MinLat, p.Lat)
		b.MinLon = min(b.MinLon, p.Lon)
		b.MaxLat = max(b.MaxLat, p.Lat)
		b.MaxLon = max(b.MaxLon, p.Lon)
	}
	return b, true
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether c lies inside the box, edges included.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

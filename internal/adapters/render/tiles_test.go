package render

import (
	"context"
	"image"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/pkg/config"
)

func TestHTTPTileSource_URL(t *testing.T) {
	src, err := NewHTTPTileSource(config.TilesConfig{
		URL:        "https://{s}.tiles.example/{z}/{x}/{y}.png?key={key}",
		APIKey:     "abc",
		Subdomains: []string{"a", "b", "c"},
		CacheSize:  4,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := src.URL(14, 11544, 7514), "https://c.tiles.example/14/11544/7514.png?key=abc"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestHTTPTileSource_FetchAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("User-Agent") != "racemap-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path == "/1/0/0.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, image.NewRGBA(image.Rect(0, 0, TileSize, TileSize)))
	}))
	defer srv.Close()

	src, err := NewHTTPTileSource(config.TilesConfig{
		URL:       srv.URL + "/{z}/{x}/{y}.png",
		UserAgent: "racemap-test",
		CacheSize: 8,
	}, srv.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for range 2 {
		img, err := src.Tile(context.Background(), 14, 11544, 7514)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if img.Bounds().Dx() != TileSize {
			t.Errorf("unexpected tile size %v", img.Bounds())
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 request with cache, got %d", hits.Load())
	}

	if _, err := src.Tile(context.Background(), 1, 0, 0); err == nil {
		t.Error("expected error for 404 tile")
	}
}

func TestDeg2Num(t *testing.T) {
	x, y := deg2num(domain.Coordinate{}, 0)
	if x != 0.5 || math.Abs(y-0.5) > 1e-12 {
		t.Errorf("expected (0.5, 0.5), got (%f, %f)", x, y)
	}

	x, y = deg2num(domain.Coordinate{Lat: 18.654543, Lon: 73.747570}, 14)
	if int(x) != 11548 || int(y) != 7327 {
		t.Errorf("unexpected tile %d/%d", int(x), int(y))
	}
}

func TestViewport_CentersView(t *testing.T) {
	view := domain.RouteView{Center: domain.Coordinate{Lat: 18.654543, Lon: 73.747570}, Zoom: 14}
	vp := newViewport(view, 800, 600)

	x, y := vp.project(view.Center)
	if math.Abs(x-400) > 1e-6 || math.Abs(y-300) > 1e-6 {
		t.Errorf("center projects to (%f, %f)", x, y)
	}

	refs := vp.tiles()
	if len(refs) < 12 || len(refs) > 20 {
		t.Fatalf("unexpected tile count %d", len(refs))
	}
	for _, r := range refs {
		if r.dx <= -TileSize || r.dx >= 800 || r.dy <= -TileSize || r.dy >= 600 {
			t.Errorf("tile %+v does not touch the canvas", r)
		}
	}
}

func TestViewport_WrapsAntimeridian(t *testing.T) {
	view := domain.RouteView{Center: domain.Coordinate{Lat: 0, Lon: 179.99}, Zoom: 2}
	for _, r := range newViewport(view, 800, 600).tiles() {
		if r.x < 0 || r.x >= 4 || r.y < 0 || r.y >= 4 {
			t.Errorf("tile out of range %+v", r)
		}
	}
}

package render_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync/atomic"
	"testing"

	"github.com/samirrijal/racemap/internal/adapters/render"
	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/core/usecases"
	"github.com/samirrijal/racemap/internal/pkg/config"
	"github.com/samirrijal/racemap/internal/pkg/geospatial"
)

var tileGrey = color.RGBA{200, 200, 200, 255}

// --- Mock TileSource ---

type mockTiles struct {
	tileFn func(ctx context.Context, z, x, y int) (image.Image, error)
	calls  atomic.Int32
}

func (m *mockTiles) Tile(ctx context.Context, z, x, y int) (image.Image, error) {
	m.calls.Add(1)
	if m.tileFn != nil {
		return m.tileFn(ctx, z, x, y)
	}
	img := image.NewRGBA(image.Rect(0, 0, render.TileSize, render.TileSize))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = tileGrey.R, tileGrey.G, tileGrey.B, tileGrey.A
	}
	return img, nil
}

func (m *mockTiles) Attribution() string { return "© test tiles" }

func newView(t *testing.T, tiles *mockTiles) *render.MapView {
	t.Helper()
	v := render.NewMapView(tiles, render.Options{Render: config.DefaultRender(), TileConcurrency: 2})
	if err := v.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(v.Unmount)
	return v
}

// tenKTrack is ten points heading east from the 10K start, 3.4 km in total.
func tenKTrack() domain.Track {
	start := domain.Coordinate{Lat: 18.654543, Lon: 73.747570}
	step := (3.4 / 9) / (geospatial.KmPerDegree * math.Cos(geospatial.ToRadians(start.Lat)))
	track := domain.Track{start}
	for i := 1; i < 10; i++ {
		track = append(track, domain.Coordinate{Lat: start.Lat, Lon: start.Lon + float64(i)*step})
	}
	return track
}

func rgbaAt(img image.Image, x, y float64) color.RGBA {
	return color.RGBAModel.Convert(img.At(int(x), int(y))).(color.RGBA)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestMapView_TenKScenario(t *testing.T) {
	tiles := &mockTiles{}
	v := newView(t, tiles)

	geom := usecases.BuildGeometry(tenKTrack(), domain.RouteTenK)
	frame, err := v.Render(context.Background(), &geom, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if frame.Placeholder {
		t.Fatal("expected a real frame")
	}
	if frame.Markers != 3 {
		t.Errorf("expected 3 km markers, got %d", frame.Markers)
	}
	if !frame.HasStart {
		t.Error("expected start marker")
	}
	if frame.PathPoints != 10 {
		t.Errorf("expected 10 path points, got %d", frame.PathPoints)
	}
	want := domain.RouteView{Center: domain.Coordinate{Lat: 18.654543, Lon: 73.747570}, Zoom: 14}
	if frame.View != want {
		t.Errorf("expected 10K view, got %+v", frame.View)
	}
	if frame.Tiles == 0 || frame.TilesFailed != 0 {
		t.Errorf("expected all tiles drawn, got %d/%d failed", frame.TilesFailed, frame.Tiles)
	}
	if frame.Attribution != "© test tiles" {
		t.Errorf("unexpected attribution %q", frame.Attribution)
	}
	if b := frame.Image.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Errorf("unexpected size %v", b)
	}
	if v.State() != render.Idle {
		t.Errorf("expected idle, got %v", v.State())
	}
}

func TestMapView_DrawsMarkersAndPath(t *testing.T) {
	v := newView(t, &mockTiles{})
	track := tenKTrack()
	geom := usecases.BuildGeometry(track, domain.RouteTenK)

	frame, err := v.Render(context.Background(), &geom, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Marker centers are filled white.
	for _, m := range geom.Markers {
		x, y := frame.Pixel(m.Position)
		c := rgbaAt(frame.Image, x, y)
		if c.R < 250 || c.G < 250 || c.B < 250 {
			t.Errorf("marker %d center not white: %v", m.Km, c)
		}
	}

	// Path between the first two points is amber over the grey tile.
	ax, ay := frame.Pixel(track[1])
	bx, by := frame.Pixel(track[2])
	c := rgbaAt(frame.Image, (ax+bx)/2, (ay+by)/2)
	if int(c.R)-int(c.B) < 100 {
		t.Errorf("expected path color, got %v", c)
	}
}

func TestMapView_EmptyTrackDrawsTilesOnly(t *testing.T) {
	v := newView(t, &mockTiles{})
	geom := usecases.BuildGeometry(domain.Track{}, domain.RouteFiveK)

	frame, err := v.Render(context.Background(), &geom, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Markers != 0 || frame.HasStart || frame.PathPoints != 0 {
		t.Errorf("expected tiles only, got %+v", frame)
	}
	if frame.Tiles == 0 {
		t.Error("expected tiles")
	}
	if frame.View.Zoom != 15 {
		t.Errorf("expected 5K zoom, got %d", frame.View.Zoom)
	}
	if c := rgbaAt(frame.Image, 400, 300); absDiff(c.R, tileGrey.R) > 2 || absDiff(c.B, tileGrey.B) > 2 {
		t.Errorf("expected tile color at center, got %v", c)
	}
}

func TestMapView_FailedTilesLeftBlank(t *testing.T) {
	tiles := &mockTiles{tileFn: func(ctx context.Context, z, x, y int) (image.Image, error) {
		return nil, errors.New("503")
	}}
	v := newView(t, tiles)
	geom := usecases.BuildGeometry(tenKTrack(), domain.RouteTenK)

	frame, err := v.Render(context.Background(), &geom, 0)
	if err != nil {
		t.Fatalf("tile failures must not fail the render: %v", err)
	}
	if frame.TilesFailed != frame.Tiles {
		t.Errorf("expected all %d tiles failed, got %d", frame.Tiles, frame.TilesFailed)
	}
	if !frame.HasStart || frame.Markers != 3 {
		t.Errorf("expected route still drawn, got %+v", frame)
	}
	if c := rgbaAt(frame.Image, 5, 5); c.R != 0xe5 || c.G != 0xe3 || c.B != 0xdf {
		t.Errorf("expected background at corner, got %v", c)
	}
}

func TestMapView_ZoomOverrideClamped(t *testing.T) {
	v := newView(t, &mockTiles{})
	geom := usecases.BuildGeometry(tenKTrack(), domain.RouteTenK)

	for override, want := range map[int]int{16: 16, 30: 19, -1: 1} {
		frame, err := v.Render(context.Background(), &geom, override)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if frame.View.Zoom != want {
			t.Errorf("override %d: expected zoom %d, got %d", override, want, frame.View.Zoom)
		}
		if frame.View.Center != geom.View.Center {
			t.Errorf("override must keep center, got %v", frame.View.Center)
		}
	}
}

func TestMapView_PlaceholderBeforeInit(t *testing.T) {
	tiles := &mockTiles{}
	v := render.NewMapView(tiles, render.Options{Render: config.DefaultRender()})
	defer v.Unmount()

	geom := usecases.BuildGeometry(tenKTrack(), domain.RouteTenK)
	frame, err := v.Render(context.Background(), &geom, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !frame.Placeholder {
		t.Error("expected placeholder before init")
	}
	if tiles.calls.Load() != 0 {
		t.Errorf("placeholder must not fetch tiles, got %d calls", tiles.calls.Load())
	}
	if v.State() != render.Uninitialized {
		t.Errorf("expected uninitialized, got %v", v.State())
	}
}

func TestMapView_InitEnvironmentError(t *testing.T) {
	cases := map[string]func(*config.RenderConfig){
		"zero surface": func(c *config.RenderConfig) { c.Width = 0 },
		"huge surface": func(c *config.RenderConfig) { c.Height = 100000 },
		"bad color":    func(c *config.RenderConfig) { c.PathColor = "amber" },
		"missing icon": func(c *config.RenderConfig) { c.StartIconPath = "/nonexistent/start.png" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.DefaultRender()
			mutate(&cfg)
			v := render.NewMapView(&mockTiles{}, render.Options{Render: cfg})
			defer v.Unmount()

			err := v.Init(context.Background())
			var envErr *domain.EnvironmentError
			if !errors.As(err, &envErr) {
				t.Fatalf("expected EnvironmentError, got %v", err)
			}
			if v.State() != render.Uninitialized {
				t.Errorf("expected uninitialized, got %v", v.State())
			}

			geom := usecases.BuildGeometry(nil, domain.RouteThreeK)
			frame, err := v.Render(context.Background(), &geom, 0)
			if err != nil || !frame.Placeholder {
				t.Errorf("expected placeholder after failed init, got %v %v", frame, err)
			}
		})
	}
}

func TestMapView_Unmount(t *testing.T) {
	v := render.NewMapView(&mockTiles{}, render.Options{Render: config.DefaultRender()})
	if err := v.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if v.State() != render.Ready {
		t.Fatalf("expected ready, got %v", v.State())
	}

	v.Unmount()
	if v.State() != render.Released {
		t.Errorf("expected released, got %v", v.State())
	}

	geom := usecases.BuildGeometry(nil, domain.RouteThreeK)
	if _, err := v.Render(context.Background(), &geom, 0); !errors.Is(err, render.ErrReleased) {
		t.Errorf("expected ErrReleased, got %v", err)
	}
	if err := v.Init(context.Background()); !errors.Is(err, render.ErrReleased) {
		t.Errorf("expected ErrReleased from Init, got %v", err)
	}
}

func TestFrame_EncodePNG(t *testing.T) {
	v := newView(t, &mockTiles{})
	geom := usecases.BuildGeometry(tenKTrack(), domain.RouteTenK)
	frame, err := v.Render(context.Background(), &geom, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := frame.EncodePNG(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 800 {
		t.Errorf("unexpected width %d", img.Bounds().Dx())
	}
}

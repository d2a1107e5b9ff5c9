package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/core/ports"
	"github.com/samirrijal/racemap/internal/pkg/config"
	"github.com/samirrijal/racemap/internal/pkg/logging"
	"github.com/samirrijal/racemap/internal/pkg/metrics"
)

// maxSurface bounds the canvas edge accepted by Init.
const maxSurface = 4096

// ErrReleased is returned by Render after Unmount.
var ErrReleased = errors.New("map view released")

// State is the lifecycle state of a MapView.
type State int

const (
	Uninitialized State = iota
	Ready
	Rendering
	Idle
	Released
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Rendering:
		return "rendering"
	case Idle:
		return "idle"
	case Released:
		return "released"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Frame is one rendered map image with a summary of what was drawn.
type Frame struct {
	Image       image.Image
	View        domain.RouteView
	Placeholder bool
	PathPoints  int
	Markers     int
	HasStart    bool
	Tiles       int
	TilesFailed int
	Attribution string

	vp viewport
}

// Pixel returns the canvas position of c in this frame.
func (f *Frame) Pixel(c domain.Coordinate) (float64, float64) {
	return f.vp.project(c)
}

// EncodePNG writes the frame as PNG.
func (f *Frame) EncodePNG(w io.Writer) error {
	return png.Encode(w, f.Image)
}

// Options configures a MapView.
type Options struct {
	Render          config.RenderConfig
	TileConcurrency int
	// HTTPClient is used to fetch a start icon given as a URL.
	HTTPClient *http.Client
}

// MapView draws route geometry over base map tiles. It must be initialised
// with Init before it draws anything other than the loading placeholder,
// and is released with Unmount. A MapView is owned by one caller.
type MapView struct {
	opts  Options
	tiles ports.TileSource

	mu    sync.Mutex
	state State
	style style
	face  font.Face
	icon  image.Image
	route domain.RouteID
}

// NewMapView creates an uninitialised view drawing tiles from tiles.
func NewMapView(tiles ports.TileSource, opts Options) *MapView {
	if opts.TileConcurrency <= 0 {
		opts.TileConcurrency = config.DefaultTiles().Concurrency
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &MapView{opts: opts, tiles: tiles}
}

// State returns the current lifecycle state.
func (m *MapView) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Init checks the rendering environment and loads the font and start icon.
// On failure it returns an *domain.EnvironmentError and the view stays
// Uninitialized.
func (m *MapView) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Released:
		return ErrReleased
	case Uninitialized:
	default:
		return nil
	}

	cfg := m.opts.Render
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxSurface || cfg.Height > maxSurface {
		return &domain.EnvironmentError{Reason: fmt.Sprintf("unsupported surface %dx%d", cfg.Width, cfg.Height)}
	}

	st, err := resolveStyle(cfg)
	if err != nil {
		return &domain.EnvironmentError{Reason: "style", Err: err}
	}

	face, err := loadFace(cfg.FontSize)
	if err != nil {
		return &domain.EnvironmentError{Reason: "font", Err: err}
	}

	icon, err := loadStartIcon(ctx, m.opts.HTTPClient, cfg.StartIconPath)
	if err != nil {
		face.Close()
		return &domain.EnvironmentError{Reason: "start icon " + cfg.StartIconPath, Err: err}
	}

	m.style = st
	m.face = face
	m.icon = icon
	m.state = Ready
	return nil
}

// Render draws geom. zoomOverride, when non-zero, replaces the route's zoom
// and is clamped to the supported range. Before Init succeeds it returns
// the loading placeholder.
func (m *MapView) Render(ctx context.Context, geom *domain.RouteGeometry, zoomOverride int) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Released:
		return nil, ErrReleased
	case Uninitialized:
		metrics.Renders.WithLabelValues("placeholder").Inc()
		return m.placeholder(), nil
	}

	if geom == nil {
		return nil, errors.New("render: nil geometry")
	}
	if geom.Route != m.route {
		logging.FromContext(ctx).Debug("map route changed", "from", m.route.Slug(), "to", geom.Route.Slug())
		m.route = geom.Route
	}

	m.state = Rendering
	defer func() { m.state = Idle }()

	view := geom.View.WithZoom(zoomOverride)
	frame := &Frame{
		View:        view,
		Attribution: m.tiles.Attribution(),
		vp:          newViewport(view, m.opts.Render.Width, m.opts.Render.Height),
	}

	dc := gg.NewContext(m.opts.Render.Width, m.opts.Render.Height)
	dc.SetColor(backgroundColor)
	dc.Clear()

	m.drawTiles(ctx, dc, frame)

	if len(geom.Track) > 0 {
		m.drawPath(dc, frame, geom.Track)
		m.drawMarkers(dc, frame, geom.Markers)
		m.drawStart(dc, frame, geom.Track[0])
	}

	m.drawAttribution(dc, frame.Attribution)

	frame.Image = dc.Image()
	kind := "route"
	if len(geom.Track) == 0 {
		kind = "tiles_only"
	}
	metrics.Renders.WithLabelValues(kind).Inc()
	return frame, nil
}

// Unmount releases the font, icon and geometry. The view cannot be used
// afterwards.
func (m *MapView) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.face != nil {
		m.face.Close()
	}
	m.face = nil
	m.icon = nil
	m.route = domain.RouteUnknown
	m.state = Released
}

func (m *MapView) placeholder() *Frame {
	w, h := m.opts.Render.Width, m.opts.Render.Height
	if w <= 0 || h <= 0 || w > maxSurface || h > maxSurface {
		w, h = config.DefaultRender().Width, config.DefaultRender().Height
	}
	dc := gg.NewContext(w, h)
	dc.SetRGB(0.95, 0.95, 0.95)
	dc.Clear()
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.DrawStringAnchored("Loading map...", float64(w)/2, float64(h)/2, 0.5, 0.5)
	return &Frame{Image: dc.Image(), Placeholder: true}
}

// drawTiles fetches the covering tiles concurrently and blits them in
// order. A tile that cannot be fetched is left as background.
func (m *MapView) drawTiles(ctx context.Context, dc *gg.Context, frame *Frame) {
	refs := frame.vp.tiles()
	imgs := make([]image.Image, len(refs))
	logger := logging.FromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.TileConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			img, err := m.tiles.Tile(gctx, ref.z, ref.x, ref.y)
			if err != nil {
				metrics.TileFetchErrors.Inc()
				logger.Warn("tile unavailable", "z", ref.z, "x", ref.x, "y", ref.y, "error", err)
				return nil
			}
			imgs[i] = img
			return nil
		})
	}
	_ = g.Wait()

	frame.Tiles = len(refs)
	for i, ref := range refs {
		if imgs[i] == nil {
			frame.TilesFailed++
			continue
		}
		dc.DrawImage(imgs[i], ref.dx, ref.dy)
	}
}

func (m *MapView) drawPath(dc *gg.Context, frame *Frame, track domain.Track) {
	if !track.Renderable() {
		return
	}
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	dc.SetLineWidth(m.style.pathWidth)
	dc.SetColor(m.style.pathColor)

	dc.NewSubPath()
	for _, p := range track {
		x, y := frame.vp.project(p)
		dc.LineTo(x, y)
	}
	dc.Stroke()
	frame.PathPoints = len(track)
}

func (m *MapView) drawMarkers(dc *gg.Context, frame *Frame, markers []domain.KmMarker) {
	dc.SetFontFace(m.face)
	r := m.style.markerRadius
	for _, mk := range markers {
		x, y := frame.vp.project(mk.Position)

		dc.DrawCircle(x, y, r)
		dc.SetColor(m.style.markerFill)
		dc.FillPreserve()
		dc.SetColor(m.style.markerColor)
		dc.SetLineWidth(m.style.markerStroke)
		dc.Stroke()

		label := strconv.Itoa(mk.Km) + " km"
		dc.SetRGBA(1, 1, 1, 0.85)
		tw, th := dc.MeasureString(label)
		dc.DrawRoundedRectangle(x-tw/2-3, y-r-th-7, tw+6, th+4, 3)
		dc.Fill()
		dc.SetColor(m.style.markerColor)
		dc.DrawStringAnchored(label, x, y-r-5, 0.5, 0)
	}
	frame.Markers = len(markers)
}

func (m *MapView) drawStart(dc *gg.Context, frame *Frame, start domain.Coordinate) {
	x, y := frame.vp.project(start)
	dc.DrawImageAnchored(m.icon, int(x), int(y), 0.5, 1)
	frame.HasStart = true
}

func (m *MapView) drawAttribution(dc *gg.Context, text string) {
	if text == "" {
		return
	}
	dc.SetFontFace(m.face)
	w, h := float64(m.opts.Render.Width), float64(m.opts.Render.Height)
	tw, th := dc.MeasureString(text)
	dc.SetRGBA(1, 1, 1, 0.7)
	dc.DrawRectangle(w-tw-8, h-th-6, tw+8, th+6)
	dc.Fill()
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored(text, w-4, h-3, 1, 0)
}

